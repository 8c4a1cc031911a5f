// Package ranker scores documents by summed posting weight.
package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

type ScoredDoc struct {
	DocID int64  `json:"doc_id"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Score int    `json:"score"`
}

// Rank adds up the weights each document collects across the posting
// lists, one list per query token (a token repeated in the query
// contributes once per occurrence). Results are ordered by score
// descending, then doc id ascending. A limit <= 0 returns every match;
// totalHits is always the number of matching documents.
func Rank(lists []index.PostingList, limit int) (results []ScoredDoc, totalHits int) {
	scores := make(map[int64]*ScoredDoc)
	for _, postings := range lists {
		for _, p := range postings {
			sd, ok := scores[p.DocID]
			if !ok {
				sd = &ScoredDoc{DocID: p.DocID, URL: p.URL}
				scores[p.DocID] = sd
			}
			sd.Score += p.Weight
		}
	}
	results = make([]ScoredDoc, 0, len(scores))
	for _, sd := range scores {
		results = append(results, *sd)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
	totalHits = len(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, totalHits
}
