package index_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

func benchCorpus(n int) []index.Document {
	docs := make([]index.Document, n)
	for i := range docs {
		docs[i] = index.Document{
			Title:   fmt.Sprintf("document %d about search", i),
			Content: fmt.Sprintf("search engine with inverted indexing, prefix tries and query %d processing", i%97),
			URL:     fmt.Sprintf("https://bench.example/%d", i),
		}
	}
	return docs
}

// BenchmarkBuildInvertedIndex measures a full inverted-index build at
// several corpus sizes.
func BenchmarkBuildInvertedIndex(b *testing.B) {
	tok := tokenizer.New(tokenizer.Options{Stem: true, MinLength: 2})
	for _, n := range []int{100, 1000, 10000} {
		fwd, err := index.BuildForwardIndex(context.Background(), benchCorpus(n))
		if err != nil {
			b.Fatal(err)
		}
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := index.BuildInvertedIndex(context.Background(), fwd, tok); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkLookupParallel(b *testing.B) {
	tok := tokenizer.New(tokenizer.Options{MinLength: 2})
	fwd, _ := index.BuildForwardIndex(context.Background(), benchCorpus(10000))
	inv, _ := index.BuildInvertedIndex(context.Background(), fwd, tok)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = inv.Lookup("search")
		}
	})
}

func BenchmarkShards(b *testing.B) {
	tok := tokenizer.New(tokenizer.Options{MinLength: 2})
	fwd, _ := index.BuildForwardIndex(context.Background(), benchCorpus(10000))
	inv, _ := index.BuildInvertedIndex(context.Background(), fwd, tok)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = inv.Shards(8)
	}
}
