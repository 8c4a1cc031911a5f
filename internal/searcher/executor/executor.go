package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/taskpool"
)

// Index is the read side of the index engine. A query reads every term and
// title from the one snapshot it starts with, so a concurrent reload never
// mixes generations into a single ranking.
type Index interface {
	Snapshot() *indexer.Snapshot
}

type SearchResult struct {
	Query     string             `json:"query"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
	TermStats map[string]int     `json:"term_stats"`
}

type Executor struct {
	index     Index
	pool      *taskpool.Pool
	tokenizer index.Tokenizer
	logger    *slog.Logger
}

func New(idx Index, pool *taskpool.Pool, tok index.Tokenizer) *Executor {
	return &Executor{
		index:     idx,
		pool:      pool,
		tokenizer: tok,
		logger:    slog.Default().With("component", "query-executor"),
	}
}

// Execute runs the query as a search task on the pool and waits for it.
// Pool rejections (queue full, stopping) are returned unchanged; a query
// that outlives the search deadline fails with an error wrapping
// taskpool.ErrTaskTimeout.
func (e *Executor) Execute(ctx context.Context, query string, limit int) (*SearchResult, error) {
	h, err := taskpool.Submit(ctx, e.pool, taskpool.TaskSearch, func(ctx context.Context) (*SearchResult, error) {
		return e.search(ctx, query, limit)
	})
	if err != nil {
		return nil, err
	}
	return h.Wait(ctx)
}

func (e *Executor) search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	snap := e.index.Snapshot()
	tokens := e.tokenizer.Tokenize(query)
	lists := make([]index.PostingList, 0, len(tokens))
	termStats := make(map[string]int)
	for i, token := range tokens {
		if taskpool.IsCancelled(ctx) {
			return nil, fmt.Errorf("search cancelled after %d of %d terms: %w", i, len(tokens), context.Cause(ctx))
		}
		token = strings.ToLower(token)
		postings, ok := snap.LookupTerm(token)
		if !ok {
			continue
		}
		lists = append(lists, postings)
		termStats[token] = len(postings)
	}

	results, total := ranker.Rank(lists, limit)
	for i := range results {
		if doc, ok := snap.LookupDocument(results[i].DocID); ok {
			results[i].Title = doc.Title
		}
	}
	e.logger.Debug("query executed",
		"query", query,
		"terms", tokens,
		"total_hits", total,
		"results", len(results),
	)
	return &SearchResult{
		Query:     query,
		TotalHits: total,
		Results:   results,
		TermStats: termStats,
	}, nil
}
