package autocomplete

import (
	"context"
	"iter"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/taskpool"
)

// Selector decides which vocabulary terms enter the trie.
type Selector func(term string) bool

// NewSelector admits terms shorter than maxLen runes. A non-empty initials
// list further restricts the trie to terms starting with one of them, a
// sampling policy for very large vocabularies.
func NewSelector(maxLen int, initials []string) Selector {
	return func(term string) bool {
		if term == "" || utf8.RuneCountInString(term) >= maxLen {
			return false
		}
		if len(initials) == 0 {
			return true
		}
		for _, prefix := range initials {
			if strings.HasPrefix(term, prefix) {
				return true
			}
		}
		return false
	}
}

// Build inserts every selected term with its document frequency.
func Build(terms iter.Seq2[string, index.PostingList], sel Selector) *Trie {
	t := NewTrie()
	for term, postings := range terms {
		if sel(term) {
			t.Insert(term, len(postings))
		}
	}
	return t
}

type Options struct {
	Limit   int
	Metrics *metrics.Metrics
}

// Suggester serves prefix queries from the trie of the latest index
// snapshot. Rebuilds replace the trie wholesale; in-flight queries finish
// on the trie they started with.
type Suggester struct {
	pool     *taskpool.Pool
	selector Selector
	limit    int
	metrics  *metrics.Metrics
	logger   *slog.Logger
	current  atomic.Pointer[Trie]
}

func NewSuggester(pool *taskpool.Pool, sel Selector, opts Options) *Suggester {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	s := &Suggester{
		pool:     pool,
		selector: sel,
		limit:    limit,
		metrics:  opts.Metrics,
		logger:   slog.Default().With("component", "autocomplete"),
	}
	s.current.Store(NewTrie())
	return s
}

// OnSnapshot rebuilds the trie from a newly published index. It is meant
// to be registered with indexer.Engine.OnPublish.
func (s *Suggester) OnSnapshot(snap *indexer.Snapshot) {
	s.Rebuild(snap.Inverted.Terms())
}

func (s *Suggester) Rebuild(terms iter.Seq2[string, index.PostingList]) {
	start := time.Now()
	t := Build(terms, s.selector)
	s.current.Store(t)
	if s.metrics != nil {
		s.metrics.AutocompleteTerms.Set(float64(t.Len()))
	}
	s.logger.Info("prefix index rebuilt", "terms", t.Len(), "duration", time.Since(start))
}

// Suggest returns the most frequent terms starting with the lowercased
// prefix. It runs as an autocomplete task on the pool.
func (s *Suggester) Suggest(ctx context.Context, prefix string) ([]Suggestion, error) {
	start := time.Now()
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	trie := s.current.Load()
	h, err := taskpool.Submit(ctx, s.pool, taskpool.TaskAutocomplete, func(ctx context.Context) ([]Suggestion, error) {
		return trie.Search(ctx, prefix, s.limit)
	})
	if err != nil {
		return nil, err
	}
	out, err := h.Wait(ctx)
	if s.metrics != nil {
		s.metrics.SuggestLatency.Observe(time.Since(start).Seconds())
	}
	return out, err
}
