// Package store persists the forward and inverted indexes, the source
// documents they are built from, and registered users in a SQL database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/database"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// SQLStore is safe for concurrent use; each SaveInvertedIndex call runs in
// its own transaction.
type SQLStore struct {
	db     *database.Client
	logger *slog.Logger
}

func New(db *database.Client) *SQLStore {
	return &SQLStore{
		db:     db,
		logger: slog.Default().With("component", "index-store", "driver", db.Driver()),
	}
}

// Migrate creates missing tables.
func (s *SQLStore) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if s.db.Driver() == database.DriverSQLite {
		schema = sqliteSchema
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.DB.ExecContext(ctx, stmt); err != nil {
			return unavailable("migrating schema", err)
		}
	}
	return nil
}

func (s *SQLStore) HasForwardIndex(ctx context.Context) (bool, error) {
	return s.exists(ctx, "forward_index")
}

func (s *SQLStore) HasInvertedIndex(ctx context.Context) (bool, error) {
	return s.exists(ctx, "inverted_index")
}

func (s *SQLStore) exists(ctx context.Context, table string) (bool, error) {
	var ok bool
	err := s.db.DB.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM "+table+")").Scan(&ok)
	if err != nil {
		return false, unavailable("checking "+table, err)
	}
	return ok, nil
}

// LoadForwardIndex returns stored documents ordered by doc_id.
func (s *SQLStore) LoadForwardIndex(ctx context.Context) ([]index.Document, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		"SELECT doc_id, title, content, url FROM forward_index ORDER BY doc_id")
	if err != nil {
		return nil, unavailable("loading forward index", err)
	}
	defer rows.Close()

	var docs []index.Document
	for rows.Next() {
		var d index.Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.URL); err != nil {
			return nil, unavailable("scanning forward index", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("loading forward index", err)
	}
	return docs, nil
}

// SaveForwardIndex writes all documents in one transaction.
func (s *SQLStore) SaveForwardIndex(ctx context.Context, docs []index.Document) error {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		for batch := range slices.Chunk(docs, index.PersistBatchSize) {
			rows := make([][]any, 0, len(batch))
			for _, d := range batch {
				rows = append(rows, []any{d.ID, d.Title, d.Content, d.URL})
			}
			if err := s.insertRows(ctx, tx, "INSERT INTO forward_index (doc_id, title, content, url) VALUES ", 4, rows); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return unavailable("saving forward index", err)
	}
	s.logger.Info("forward index saved", "documents", len(docs))
	return nil
}

// LoadInvertedIndex groups stored postings by term, each list in doc_id
// order.
func (s *SQLStore) LoadInvertedIndex(ctx context.Context) (map[string]index.PostingList, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		"SELECT term, doc_id, weight, url FROM inverted_index ORDER BY term, doc_id")
	if err != nil {
		return nil, unavailable("loading inverted index", err)
	}
	defer rows.Close()

	terms := make(map[string]index.PostingList)
	for rows.Next() {
		var p index.Posting
		if err := rows.Scan(&p.Term, &p.DocID, &p.Weight, &p.URL); err != nil {
			return nil, unavailable("scanning inverted index", err)
		}
		terms[p.Term] = append(terms[p.Term], p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("loading inverted index", err)
	}
	return terms, nil
}

// SaveInvertedIndex writes one shard in a transaction, at most
// index.PersistBatchSize postings per statement. Terms wider than
// index.MaxTermLength are rejected with ErrTermTooLong before anything is
// written; callers are expected to filter them.
func (s *SQLStore) SaveInvertedIndex(ctx context.Context, shard []index.TermEntry) error {
	batches, err := postingBatches(shard)
	if err != nil {
		return err
	}
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		for _, batch := range batches {
			rows := make([][]any, 0, len(batch))
			for _, p := range batch {
				rows = append(rows, []any{p.Term, p.DocID, p.Weight, p.URL})
			}
			if err := s.insertRows(ctx, tx, "INSERT INTO inverted_index (term, doc_id, weight, url) VALUES ", 4, rows); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return unavailable(fmt.Sprintf("saving inverted shard of %d terms", len(shard)), err)
	}
	return nil
}

// postingBatches flattens a shard in term order and splits it into insert
// statements of at most index.PersistBatchSize postings.
func postingBatches(shard []index.TermEntry) ([][]index.Posting, error) {
	var postings []index.Posting
	for _, e := range shard {
		if n := utf8.RuneCountInString(e.Term); n > index.MaxTermLength {
			return nil, fmt.Errorf("saving term of %d chars: %w", n, apperrors.ErrTermTooLong)
		}
		for _, p := range e.Postings {
			p.Term = e.Term
			postings = append(postings, p)
		}
	}
	return slices.Collect(slices.Chunk(postings, index.PersistBatchSize)), nil
}

// LoadSourceDocuments returns raw documents in insertion order. Their ID
// field is left zero; ids are assigned by the forward-index build.
func (s *SQLStore) LoadSourceDocuments(ctx context.Context) ([]index.Document, error) {
	rows, err := s.db.DB.QueryContext(ctx, "SELECT title, content, url FROM source ORDER BY id")
	if err != nil {
		return nil, unavailable("loading source documents", err)
	}
	defer rows.Close()

	var docs []index.Document
	for rows.Next() {
		var d index.Document
		if err := rows.Scan(&d.Title, &d.Content, &d.URL); err != nil {
			return nil, unavailable("scanning source documents", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("loading source documents", err)
	}
	return docs, nil
}

// AddSourceDocuments appends crawled documents to the source table.
func (s *SQLStore) AddSourceDocuments(ctx context.Context, docs []index.Document) error {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		for batch := range slices.Chunk(docs, index.PersistBatchSize) {
			rows := make([][]any, 0, len(batch))
			for _, d := range batch {
				rows = append(rows, []any{d.Title, d.Content, d.URL})
			}
			if err := s.insertRows(ctx, tx, "INSERT INTO source (title, content, url) VALUES ", 3, rows); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return unavailable("adding source documents", err)
	}
	return nil
}

// ResetIndex deletes both persisted indexes so a rebuilt pair can be
// written in their place.
func (s *SQLStore) ResetIndex(ctx context.Context) error {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"inverted_index", "forward_index"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return unavailable("resetting index", err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *SQLStore) insertRows(ctx context.Context, tx *sql.Tx, prefix string, cols int, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", cols), ", ") + ")"
	var b strings.Builder
	b.Grow(len(prefix) + len(rows)*(len(tuple)+2))
	b.WriteString(prefix)
	args := make([]any, 0, len(rows)*cols)
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
		args = append(args, row...)
	}
	if _, err := tx.ExecContext(ctx, s.db.Rebind(b.String()), args...); err != nil {
		return fmt.Errorf("inserting %d rows: %w", len(rows), err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, apperrors.ErrStoreUnavailable, err)
}
