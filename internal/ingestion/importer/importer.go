// Package importer loads source documents from a JSON Lines stream into
// the document store.
package importer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/validator"
)

// Sink receives validated documents in input order.
type Sink interface {
	AddSourceDocuments(ctx context.Context, docs []index.Document) error
}

// Result counts what an import did.
type Result struct {
	Imported int `json:"imported"`
	Rejected int `json:"rejected"`
}

type Importer struct {
	sink      Sink
	batchSize int
	logger    *slog.Logger
}

func New(sink Sink, batchSize int) *Importer {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Importer{
		sink:      sink,
		batchSize: batchSize,
		logger:    slog.Default().With("component", "importer"),
	}
}

// Import reads one JSON object per line. Invalid lines are logged and
// counted, not fatal; store failures abort the import.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	batch := make([]index.Document, 0, im.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := im.sink.AddSourceDocuments(ctx, batch); err != nil {
			return fmt.Errorf("storing %d documents: %w", len(batch), err)
		}
		res.Imported += len(batch)
		batch = batch[:0]
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return res, err
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		doc, err := parseLine(text)
		if err != nil {
			res.Rejected++
			im.logger.Warn("skipping invalid document", "line", line, "error", err)
			continue
		}
		batch = append(batch, doc)
		if len(batch) == im.batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("reading line %d: %w", line+1, err)
	}
	if err := flush(); err != nil {
		return res, err
	}
	im.logger.Info("import finished", "imported", res.Imported, "rejected", res.Rejected)
	return res, nil
}

func parseLine(text string) (index.Document, error) {
	var req ingestion.IngestRequest
	if err := json.Unmarshal([]byte(text), &req); err != nil {
		return index.Document{}, fmt.Errorf("decoding: %w", err)
	}
	if err := validator.ValidateIngestRequest(&req); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			return index.Document{}, verr
		}
		return index.Document{}, err
	}
	return ToDocument(req), nil
}

// ToDocument converts a validated request. The id is assigned later by the
// forward-index build.
func ToDocument(req ingestion.IngestRequest) index.Document {
	return index.Document{
		Title:   strings.TrimSpace(req.Title),
		Content: strings.TrimSpace(req.Content),
		URL:     strings.TrimSpace(req.URL),
	}
}
