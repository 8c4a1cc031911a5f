package index

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Tokenizer splits text into terms. Implementations must be safe for
// concurrent use.
type Tokenizer interface {
	Tokenize(text string) []string
}

// InvertedIndex maps lowercase terms to their postings. Every key maps to a
// non-empty list. It is immutable once constructed.
type InvertedIndex struct {
	terms map[string]PostingList
}

// NewInvertedIndex adopts m, dropping terms with no postings.
func NewInvertedIndex(m map[string]PostingList) *InvertedIndex {
	if m == nil {
		m = make(map[string]PostingList)
	}
	for term, postings := range m {
		if len(postings) == 0 {
			delete(m, term)
		}
	}
	return &InvertedIndex{terms: m}
}

// TermWeights computes one posting per distinct term of doc, in order of
// first appearance (title before content). A term's weight is
// title occurrences * TitleWeight + content occurrences * ContentWeight.
func TermWeights(doc Document, tok Tokenizer) []Posting {
	weights := make(map[string]int)
	order := make([]string, 0)
	add := func(text string, w int) {
		for _, t := range tok.Tokenize(text) {
			t = strings.ToLower(t)
			if _, seen := weights[t]; !seen {
				order = append(order, t)
			}
			weights[t] += w
		}
	}
	add(doc.Title, TitleWeight)
	add(doc.Content, ContentWeight)

	postings := make([]Posting, 0, len(order))
	for _, t := range order {
		postings = append(postings, Posting{
			Term:   t,
			DocID:  doc.ID,
			Weight: weights[t],
			URL:    doc.URL,
		})
	}
	return postings
}

// BuildInvertedIndex derives postings from every document of fwd in id
// order. It polls ctx between documents.
func BuildInvertedIndex(ctx context.Context, fwd *ForwardIndex, tok Tokenizer) (*InvertedIndex, error) {
	terms := make(map[string]PostingList)
	for i, doc := range fwd.Slice() {
		if i%cancelCheckEvery == 0 && ctx.Err() != nil {
			return nil, fmt.Errorf("building inverted index at document %d: %w", i, context.Cause(ctx))
		}
		for _, p := range TermWeights(doc, tok) {
			terms[p.Term] = append(terms[p.Term], p)
		}
	}
	return &InvertedIndex{terms: terms}, nil
}

// Lookup is an exact, case-sensitive match on the stored key.
func (ix *InvertedIndex) Lookup(term string) (PostingList, bool) {
	if ix == nil {
		return nil, false
	}
	postings, ok := ix.terms[term]
	return postings, ok
}

func (ix *InvertedIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.terms)
}

// Terms iterates over every term and its postings in no particular order.
func (ix *InvertedIndex) Terms() iter.Seq2[string, PostingList] {
	return func(yield func(string, PostingList) bool) {
		if ix == nil {
			return
		}
		for term, postings := range ix.terms {
			if !yield(term, postings) {
				return
			}
		}
	}
}

// SortedTerms returns the vocabulary in byte order.
func (ix *InvertedIndex) SortedTerms() []string {
	if ix == nil {
		return nil
	}
	out := make([]string, 0, len(ix.terms))
	for term := range ix.terms {
		out = append(out, term)
	}
	slices.Sort(out)
	return out
}

// Shards splits the vocabulary, in sorted order, into min(terms, n)
// contiguous runs of near-equal size.
func (ix *InvertedIndex) Shards(n int) [][]TermEntry {
	terms := ix.SortedTerms()
	if len(terms) == 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	n = min(n, len(terms))
	shards := make([][]TermEntry, n)
	for i := 0; i < n; i++ {
		lo, hi := i*len(terms)/n, (i+1)*len(terms)/n
		shard := make([]TermEntry, 0, hi-lo)
		for _, term := range terms[lo:hi] {
			shard = append(shard, TermEntry{Term: term, Postings: ix.terms[term]})
		}
		shards[i] = shard
	}
	return shards
}

// Restrict returns an index holding only postings whose doc id is below
// docCount, and the number of postings dropped.
func (ix *InvertedIndex) Restrict(docCount int) (*InvertedIndex, int) {
	out := make(map[string]PostingList, ix.Len())
	dropped := 0
	for term, postings := range ix.Terms() {
		kept := make(PostingList, 0, len(postings))
		for _, p := range postings {
			if p.DocID >= 0 && p.DocID < int64(docCount) {
				kept = append(kept, p)
			} else {
				dropped++
			}
		}
		if len(kept) > 0 {
			out[term] = kept
		}
	}
	return &InvertedIndex{terms: out}, dropped
}
