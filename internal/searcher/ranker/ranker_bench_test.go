package ranker

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

// BenchmarkRank measures scoring and sorting for two overlapping posting
// lists of different sizes.
func BenchmarkRank(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		a := make(index.PostingList, n)
		c := make(index.PostingList, n/2)
		for i := range a {
			a[i] = index.Posting{Term: "search", DocID: int64(i), Weight: i%13 + 1}
		}
		for i := range c {
			c[i] = index.Posting{Term: "engine", DocID: int64(i * 2), Weight: i%7 + 10}
		}
		lists := []index.PostingList{a, c}
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = Rank(lists, 10)
			}
		})
	}
}
