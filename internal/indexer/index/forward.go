package index

import (
	"context"
	"fmt"
	"iter"
)

// cancelCheckEvery is how many documents a build processes between polls of
// its context.
const cancelCheckEvery = 64

// ForwardIndex maps dense document ids to documents. It is immutable once
// constructed.
type ForwardIndex struct {
	docs []Document
}

// NewForwardIndex adopts docs, which must already carry ids 0..len-1 in
// order.
func NewForwardIndex(docs []Document) (*ForwardIndex, error) {
	for i, d := range docs {
		if d.ID != int64(i) {
			return nil, fmt.Errorf("forward index not dense: position %d holds doc_id %d", i, d.ID)
		}
	}
	return &ForwardIndex{docs: docs}, nil
}

// BuildForwardIndex assigns ids to source documents in read order. It stops
// early with the context's error if ctx is cancelled.
func BuildForwardIndex(ctx context.Context, source []Document) (*ForwardIndex, error) {
	docs := make([]Document, len(source))
	for i, d := range source {
		if i%cancelCheckEvery == 0 && ctx.Err() != nil {
			return nil, fmt.Errorf("building forward index at document %d: %w", i, context.Cause(ctx))
		}
		d.ID = int64(i)
		docs[i] = d
	}
	return &ForwardIndex{docs: docs}, nil
}

// Lookup returns the document with the given id.
func (f *ForwardIndex) Lookup(id int64) (Document, bool) {
	if f == nil || id < 0 || id >= int64(len(f.docs)) {
		return Document{}, false
	}
	return f.docs[id], true
}

func (f *ForwardIndex) Len() int {
	if f == nil {
		return 0
	}
	return len(f.docs)
}

// Documents iterates in id order.
func (f *ForwardIndex) Documents() iter.Seq[Document] {
	return func(yield func(Document) bool) {
		if f == nil {
			return
		}
		for _, d := range f.docs {
			if !yield(d) {
				return
			}
		}
	}
}

// Slice returns the backing documents. Callers must not modify them.
func (f *ForwardIndex) Slice() []Document {
	if f == nil {
		return nil
	}
	return f.docs
}
