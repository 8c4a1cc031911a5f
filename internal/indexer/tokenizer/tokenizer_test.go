package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeLowercasesAndDropsStopWords(t *testing.T) {
	tok := New(Options{MinLength: 2})
	got := tok.Tokenize("The Cat and the DOG, on a mat!")
	assert.Equal(t, []string{"cat", "dog", "mat"}, got)
}

func TestTokenizeKeepsDuplicates(t *testing.T) {
	tok := New(Options{MinLength: 1})
	assert.Equal(t, []string{"cat", "dog", "cat"}, tok.Tokenize("cat dog cat"))
}

func TestTokenizeMinLength(t *testing.T) {
	tok := New(Options{MinLength: 3})
	assert.Equal(t, []string{"fox", "jumps"}, tok.Tokenize("go fox jumps x"))
}

func TestTokenizeStems(t *testing.T) {
	tok := New(Options{Stem: true, MinLength: 2})
	assert.Equal(t, []string{"search", "engin", "run"}, tok.Tokenize("searching engines running"))
}

func TestTokenizeUnicode(t *testing.T) {
	tok := New(Options{MinLength: 2})
	assert.Equal(t, []string{"café", "münchen"}, tok.Tokenize("Café—München"))
}

func TestTokenizeEmpty(t *testing.T) {
	tok := New(Options{})
	assert.Empty(t, tok.Tokenize(""))
	assert.Empty(t, tok.Tokenize("  ,.; "))
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("the"))
	assert.False(t, IsStopWord("search"))
}
