package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

func catDogLists() []index.PostingList {
	cat := index.PostingList{
		{Term: "cat", DocID: 1, Weight: 20, URL: "u1"},
		{Term: "cat", DocID: 2, Weight: 5, URL: "u2"},
	}
	dog := index.PostingList{
		{Term: "dog", DocID: 1, Weight: 11, URL: "u1"},
	}
	return []index.PostingList{cat, dog}
}

func TestRankSumsWeights(t *testing.T) {
	results, total := Rank(catDogLists(), 0)
	assert.Equal(t, 2, total)
	assert.Equal(t, []ScoredDoc{
		{DocID: 1, URL: "u1", Score: 31},
		{DocID: 2, URL: "u2", Score: 5},
	}, results)
}

func TestRankTieBreaksOnDocID(t *testing.T) {
	lists := []index.PostingList{{
		{DocID: 9, Weight: 3},
		{DocID: 4, Weight: 3},
		{DocID: 6, Weight: 7},
	}}
	results, _ := Rank(lists, 0)
	assert.Equal(t, []int64{6, 4, 9}, []int64{results[0].DocID, results[1].DocID, results[2].DocID})
}

func TestRankRepeatedTokenCountsTwice(t *testing.T) {
	cat := catDogLists()[0]
	results, _ := Rank([]index.PostingList{cat, cat}, 0)
	assert.Equal(t, 40, results[0].Score)
}

func TestRankLimit(t *testing.T) {
	results, total := Rank(catDogLists(), 1)
	assert.Equal(t, 2, total)
	assert.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].DocID)
}

func TestRankEmpty(t *testing.T) {
	results, total := Rank(nil, 10)
	assert.Empty(t, results)
	assert.NotNil(t, results)
	assert.Zero(t, total)
}
