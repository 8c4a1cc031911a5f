package tokenizer

import (
	"strings"
	"testing"
)

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `A small search engine keeps a forward index of documents and an
        inverted index from each term to the documents containing it. Titles
        weigh ten times as much as body text, and queries rank documents by
        the summed weight of their terms.`,
	"long": strings.Repeat(`Information retrieval systems combine tokenization, stemming
        and stop word removal to normalize text into searchable terms. The inverted
        index maps each term to the documents containing it. Prefix tries answer
        autocomplete queries with the most frequent vocabulary terms. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for _, stem := range []bool{false, true} {
		tok := New(Options{Stem: stem, MinLength: 2})
		for name, text := range sampleTexts {
			label := name
			if stem {
				label += "_stemmed"
			}
			b.Run(label, func(b *testing.B) {
				b.ReportAllocs()
				b.SetBytes(int64(len(text)))
				for i := 0; i < b.N; i++ {
					_ = tok.Tokenize(text)
				}
			})
		}
	}
}
