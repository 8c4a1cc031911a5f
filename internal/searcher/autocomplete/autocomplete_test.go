package autocomplete

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/taskpool"
)

func TestPrefixSearchRanksByFrequency(t *testing.T) {
	trie := NewTrie()
	trie.Insert("search", 5)
	trie.Insert("sea", 2)
	trie.Insert("seat", 9)

	assert.Equal(t, []Suggestion{
		{Term: "seat", Frequency: 9},
		{Term: "search", Frequency: 5},
		{Term: "sea", Frequency: 2},
	}, trie.PrefixSearch("sea"))
	assert.Empty(t, trie.PrefixSearch("xyz"))
	assert.NotNil(t, trie.PrefixSearch("xyz"))
}

func TestInsertAccumulates(t *testing.T) {
	trie := NewTrie()
	trie.Insert("cat", 1)
	trie.Insert("cat", 1)
	trie.Insert("cat", 3)
	assert.Equal(t, []Suggestion{{Term: "cat", Frequency: 5}}, trie.PrefixSearch("ca"))
	assert.Equal(t, 1, trie.Len())
}

func TestEmptyPrefixReturnsTopTen(t *testing.T) {
	trie := NewTrie()
	for i := 0; i < 25; i++ {
		trie.Insert(fmt.Sprintf("term%02d", i), i)
	}
	got := trie.PrefixSearch("")
	require.Len(t, got, DefaultLimit)
	assert.Equal(t, "term24", got[0].Term)
	assert.Equal(t, "term15", got[9].Term)
}

func TestTiesAreDeterministic(t *testing.T) {
	trie := NewTrie()
	for _, term := range []string{"beta", "alpha", "gamma", "al"} {
		trie.Insert(term, 1)
	}
	assert.Equal(t, []Suggestion{
		{Term: "al", Frequency: 1},
		{Term: "alpha", Frequency: 1},
		{Term: "beta", Frequency: 1},
		{Term: "gamma", Frequency: 1},
	}, trie.PrefixSearch(""))
}

func TestPrefixIsItselfATerm(t *testing.T) {
	trie := NewTrie()
	trie.Insert("go", 4)
	assert.Equal(t, []Suggestion{{Term: "go", Frequency: 4}}, trie.PrefixSearch("go"))
}

func TestUnicodeTerms(t *testing.T) {
	trie := NewTrie()
	trie.Insert("café", 2)
	trie.Insert("cafés", 1)
	assert.Equal(t, []Suggestion{{Term: "café", Frequency: 2}, {Term: "cafés", Frequency: 1}}, trie.PrefixSearch("caf"))
}

func TestSearchHonoursCancellation(t *testing.T) {
	trie := NewTrie()
	for i := 0; i < 3*cancelCheckEvery; i++ {
		trie.Insert(fmt.Sprintf("w%d", i), 1)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := trie.Search(ctx, "w", 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentInsertAndSearch(t *testing.T) {
	trie := NewTrie()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				trie.Insert("shared", 1)
				trie.PrefixSearch("sh")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, []Suggestion{{Term: "shared", Frequency: 800}}, trie.PrefixSearch("shared"))
}

func TestSelector(t *testing.T) {
	all := NewSelector(index.MaxTermLength, nil)
	assert.True(t, all("search"))
	assert.False(t, all(""))
	assert.False(t, all(strings.Repeat("x", index.MaxTermLength)))

	sampled := NewSelector(index.MaxTermLength, []string{"f"})
	assert.True(t, sampled("fish"))
	assert.False(t, sampled("cat"))
}

func TestBuildUsesDocumentFrequency(t *testing.T) {
	inv := index.NewInvertedIndex(map[string]index.PostingList{
		"cat": {{DocID: 0}, {DocID: 1}, {DocID: 2}},
		"car": {{DocID: 1}},
		"dog": {{DocID: 0}},
	})
	trie := Build(inv.Terms(), NewSelector(index.MaxTermLength, nil))
	assert.Equal(t, []Suggestion{{Term: "cat", Frequency: 3}, {Term: "car", Frequency: 1}}, trie.PrefixSearch("ca"))
}

func TestSuggesterRebuildsOnSnapshot(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	pool, err := taskpool.New(taskpool.Options{Workers: 2, MaxQueueDepth: 4})
	require.NoError(t, err)
	t.Cleanup(func() { pool.Shutdown(context.Background()) })

	s := NewSuggester(pool, NewSelector(index.MaxTermLength, nil), Options{Metrics: m})
	got, err := s.Suggest(context.Background(), "se")
	require.NoError(t, err)
	assert.Empty(t, got)

	s.OnSnapshot(&indexer.Snapshot{
		Forward: mustForward(t, 3),
		Inverted: index.NewInvertedIndex(map[string]index.PostingList{
			"search": {{DocID: 0}, {DocID: 1}},
			"seat":   {{DocID: 0}, {DocID: 1}, {DocID: 2}},
			"dog":    {{DocID: 2}},
		}),
	})
	got, err = s.Suggest(context.Background(), "  SE ")
	require.NoError(t, err)
	assert.Equal(t, []Suggestion{{Term: "seat", Frequency: 3}, {Term: "search", Frequency: 2}}, got)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.AutocompleteTerms))
}

func TestSuggestCompletesWholeWordsWithDefaultTokenizer(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	tok := tokenizer.New(tokenizer.Options{
		Stem:      cfg.Tokenizer.Stem,
		MinLength: cfg.Tokenizer.MinTokenLength,
	})

	ctx := context.Background()
	fwd, err := index.BuildForwardIndex(ctx, []index.Document{
		{Title: "Search engines", Content: "database computing", URL: "u0"},
	})
	require.NoError(t, err)
	inv, err := index.BuildInvertedIndex(ctx, fwd, tok)
	require.NoError(t, err)

	pool, err := taskpool.New(taskpool.Options{Workers: 1, MaxQueueDepth: 4})
	require.NoError(t, err)
	t.Cleanup(func() { pool.Shutdown(context.Background()) })
	s := NewSuggester(pool, NewSelector(cfg.Autocomplete.MaxTermLength, cfg.Autocomplete.Initials), Options{})
	s.OnSnapshot(&indexer.Snapshot{Forward: fwd, Inverted: inv})

	for prefix, want := range map[string]string{
		"eng":      "engines",
		"engines":  "engines",
		"database": "database",
		"Comput":   "computing",
	} {
		got, err := s.Suggest(ctx, prefix)
		require.NoError(t, err)
		assert.Equal(t, []Suggestion{{Term: want, Frequency: 1}}, got, "prefix %q", prefix)
	}
}

func mustForward(t *testing.T, n int) *index.ForwardIndex {
	t.Helper()
	fwd, err := index.BuildForwardIndex(context.Background(), make([]index.Document, n))
	require.NoError(t, err)
	return fwd
}
