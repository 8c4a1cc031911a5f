// Package handler accepts documents over HTTP for the next index build.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/importer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

const maxBatch = 1000

type Handler struct {
	sink   importer.Sink
	logger *slog.Logger
}

func New(sink importer.Sink) *Handler {
	return &Handler{
		sink:   sink,
		logger: slog.Default().With("component", "ingestion-handler"),
	}
}

// Ingest accepts a single document object or an array of them. The batch
// is stored all-or-nothing.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	reqs, err := decode(http.MaxBytesReader(w, r.Body, 16<<20))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(reqs) == 0 || len(reqs) > maxBatch {
		h.writeError(w, http.StatusBadRequest, "expected between 1 and 1000 documents")
		return
	}

	docs := make([]index.Document, 0, len(reqs))
	for i := range reqs {
		if err := validator.ValidateIngestRequest(&reqs[i]); err != nil {
			var validationErr *validator.ValidationError
			if errors.As(err, &validationErr) {
				h.writeJSON(w, http.StatusBadRequest, map[string]any{
					"error":  "validation failed",
					"index":  i,
					"fields": validationErr.Fields,
				})
				return
			}
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		docs = append(docs, importer.ToDocument(reqs[i]))
	}

	if err := h.sink.AddSourceDocuments(ctx, docs); err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("ingestion failed",
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "ingestion failed")
		return
	}
	log.Info("documents ingested", "count", len(docs))
	h.writeJSON(w, http.StatusAccepted, ingestion.IngestResponse{
		Accepted: len(docs),
		Status:   "pending_reload",
	})
}

func decode(body io.Reader) ([]ingestion.IngestRequest, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, err
	}
	if len(raw) > 0 && raw[0] == '[' {
		var reqs []ingestion.IngestRequest
		err := json.Unmarshal(raw, &reqs)
		return reqs, err
	}
	var req ingestion.IngestRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	return []ingestion.IngestRequest{req}, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
