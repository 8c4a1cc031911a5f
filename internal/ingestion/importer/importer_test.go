package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

type memSink struct {
	batches [][]index.Document
	err     error
}

func (s *memSink) AddSourceDocuments(_ context.Context, docs []index.Document) error {
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, append([]index.Document(nil), docs...))
	return nil
}

const input = `{"title":"Cats","content":"cat","url":"https://a.example/cats"}

{"title":"Dogs","content":"dog","url":"https://a.example/dogs"}
not json
{"title":"","content":"","url":"https://a.example/empty"}
{"title":"Fish","content":"fish","url":"https://a.example/fish"}
`

func TestImport(t *testing.T) {
	sink := &memSink{}
	res, err := New(sink, 2).Import(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, Result{Imported: 3, Rejected: 2}, res)

	require.Len(t, sink.batches, 2)
	assert.Len(t, sink.batches[0], 2)
	assert.Equal(t, "Fish", sink.batches[1][0].Title)
	assert.Equal(t, "https://a.example/cats", sink.batches[0][0].URL)
}

func TestImportStoreFailure(t *testing.T) {
	boom := errors.New("store down")
	_, err := New(&memSink{err: boom}, 10).Import(context.Background(), strings.NewReader(input))
	assert.ErrorIs(t, err, boom)
}

func TestImportHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(&memSink{}, 10).Import(ctx, strings.NewReader(input))
	assert.ErrorIs(t, err, context.Canceled)
}
