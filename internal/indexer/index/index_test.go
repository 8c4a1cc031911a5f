package index

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fieldsTokenizer struct{}

func (fieldsTokenizer) Tokenize(text string) []string { return strings.Fields(text) }

func TestTermWeightLaw(t *testing.T) {
	doc := Document{ID: 3, Title: "cat dog cat", Content: "dog", URL: "https://example.com/pets"}
	postings := TermWeights(doc, fieldsTokenizer{})

	require.Len(t, postings, 2)
	assert.Equal(t, Posting{Term: "cat", DocID: 3, Weight: 20, URL: "https://example.com/pets"}, postings[0])
	assert.Equal(t, Posting{Term: "dog", DocID: 3, Weight: 11, URL: "https://example.com/pets"}, postings[1])
}

func TestTermWeightsLowercases(t *testing.T) {
	postings := TermWeights(Document{Title: "Go", Content: "GO go"}, fieldsTokenizer{})
	require.Len(t, postings, 1)
	assert.Equal(t, "go", postings[0].Term)
	assert.Equal(t, 12, postings[0].Weight)
}

func TestBuildForwardIndexIsDense(t *testing.T) {
	source := []Document{
		{ID: 99, Title: "a", URL: "u0"},
		{Title: "b", URL: "u1"},
		{Title: "c", URL: "u2"},
	}
	fwd, err := BuildForwardIndex(context.Background(), source)
	require.NoError(t, err)
	require.Equal(t, 3, fwd.Len())

	for i := 0; i < fwd.Len(); i++ {
		doc, ok := fwd.Lookup(int64(i))
		require.True(t, ok)
		assert.Equal(t, int64(i), doc.ID)
	}
	_, ok := fwd.Lookup(3)
	assert.False(t, ok)
	_, ok = fwd.Lookup(-1)
	assert.False(t, ok)
	assert.Equal(t, int64(99), source[0].ID, "source slice is not mutated")
}

func TestBuildForwardIndexHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := BuildForwardIndex(ctx, make([]Document, 10))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewForwardIndexRejectsGaps(t *testing.T) {
	_, err := NewForwardIndex([]Document{{ID: 0}, {ID: 2}})
	assert.Error(t, err)

	fwd, err := NewForwardIndex([]Document{{ID: 0}, {ID: 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, fwd.Len())
}

func TestBuildInvertedIndex(t *testing.T) {
	fwd, err := BuildForwardIndex(context.Background(), []Document{
		{Title: "cat", Content: "cat cat dog", URL: "u0"},
		{Title: "dog", Content: "bird", URL: "u1"},
	})
	require.NoError(t, err)

	inv, err := BuildInvertedIndex(context.Background(), fwd, fieldsTokenizer{})
	require.NoError(t, err)
	assert.Equal(t, 3, inv.Len())

	dog, ok := inv.Lookup("dog")
	require.True(t, ok)
	assert.Equal(t, PostingList{
		{Term: "dog", DocID: 0, Weight: 1, URL: "u0"},
		{Term: "dog", DocID: 1, Weight: 10, URL: "u1"},
	}, dog)

	_, ok = inv.Lookup("Dog")
	assert.False(t, ok)

	for term, postings := range inv.Terms() {
		assert.NotEmpty(t, postings, term)
		for _, p := range postings {
			_, ok := fwd.Lookup(p.DocID)
			assert.True(t, ok)
		}
	}
}

func TestShardsPartitionVocabulary(t *testing.T) {
	m := make(map[string]PostingList)
	for i := 0; i < 10; i++ {
		term := fmt.Sprintf("t%02d", i)
		m[term] = PostingList{{Term: term, DocID: 0, Weight: 1}}
	}
	inv := NewInvertedIndex(m)

	shards := inv.Shards(3)
	require.Len(t, shards, 3)
	var seen []string
	for _, shard := range shards {
		assert.NotEmpty(t, shard)
		for _, e := range shard {
			seen = append(seen, e.Term)
		}
	}
	assert.Equal(t, inv.SortedTerms(), seen)

	assert.Len(t, inv.Shards(50), 10, "never more shards than terms")
	assert.Len(t, inv.Shards(0), 1)
	assert.Nil(t, NewInvertedIndex(nil).Shards(4))
}

func TestNewInvertedIndexDropsEmptyLists(t *testing.T) {
	inv := NewInvertedIndex(map[string]PostingList{"a": nil, "b": {{Term: "b"}}})
	assert.Equal(t, 1, inv.Len())
	_, ok := inv.Lookup("a")
	assert.False(t, ok)
}

func TestRestrict(t *testing.T) {
	inv := NewInvertedIndex(map[string]PostingList{
		"cat":  {{Term: "cat", DocID: 0}, {Term: "cat", DocID: 5}},
		"lost": {{Term: "lost", DocID: 9}},
	})
	restricted, dropped := inv.Restrict(2)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 1, restricted.Len())
	cat, _ := restricted.Lookup("cat")
	assert.Len(t, cat, 1)
}
