package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

type memSink struct {
	docs []index.Document
	err  error
}

func (s *memSink) AddSourceDocuments(_ context.Context, docs []index.Document) error {
	if s.err != nil {
		return s.err
	}
	s.docs = append(s.docs, docs...)
	return nil
}

func ingest(h *Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Ingest(rec, httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader(body)))
	return rec
}

func TestIngestSingleAndBatch(t *testing.T) {
	sink := &memSink{}
	h := New(sink)

	rec := ingest(h, `{"title":"Cats","content":"cat","url":"https://a.example/cats"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"accepted":1,"status":"pending_reload"}`, rec.Body.String())

	rec = ingest(h, `[{"title":"Dogs","url":"https://a.example/dogs"},{"content":"fish","url":"https://a.example/fish"}]`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, sink.docs, 3)
}

func TestIngestRejectsInvalidBatch(t *testing.T) {
	sink := &memSink{}
	h := New(sink)

	rec := ingest(h, `[{"title":"Dogs","url":"https://a.example/dogs"},{"title":"","url":""}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"index":1`)
	assert.Empty(t, sink.docs, "nothing is stored when any document is invalid")

	assert.Equal(t, http.StatusBadRequest, ingest(h, `{oops`).Code)
	assert.Equal(t, http.StatusBadRequest, ingest(h, `[]`).Code)
}

func TestIngestStoreUnavailable(t *testing.T) {
	h := New(&memSink{err: fmt.Errorf("adding source documents: %w", apperrors.ErrStoreUnavailable)})
	rec := ingest(h, `{"title":"Cats","url":"https://a.example/cats"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
