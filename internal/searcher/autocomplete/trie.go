// Package autocomplete suggests vocabulary terms for a typed prefix,
// ranked by how many documents contain them.
package autocomplete

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// DefaultLimit is how many suggestions a prefix query returns.
const DefaultLimit = 10

// cancelCheckEvery is how many trie nodes a walk visits between context
// polls.
const cancelCheckEvery = 1024

type Suggestion struct {
	Term      string `json:"term"`
	Frequency int    `json:"frequency"`
}

type node struct {
	children map[rune]*node
	terminal bool
	freq     int
}

// Trie is a rune-keyed prefix tree. A single mutex serialises inserts and
// queries.
type Trie struct {
	mu    sync.Mutex
	root  *node
	terms int
}

func NewTrie() *Trie {
	return &Trie{root: &node{}}
}

// Insert adds freq to term's accumulated frequency, creating the path if
// needed.
func (t *Trie) Insert(term string, freq int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.root
	for _, r := range term {
		child, ok := n.children[r]
		if !ok {
			if n.children == nil {
				n.children = make(map[rune]*node)
			}
			child = &node{}
			n.children[r] = child
		}
		n = child
	}
	if !n.terminal {
		n.terminal = true
		t.terms++
	}
	n.freq += freq
}

// Len returns the number of distinct terms.
func (t *Trie) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.terms
}

// PrefixSearch returns up to DefaultLimit terms starting with prefix,
// highest frequency first. An empty prefix matches every term.
func (t *Trie) PrefixSearch(prefix string) []Suggestion {
	out, _ := t.Search(context.Background(), prefix, DefaultLimit)
	return out
}

// Search is PrefixSearch with an explicit limit (<= 0 means all) that
// stops early if ctx is cancelled. Terms of equal frequency keep
// lexicographic rune order.
func (t *Trie) Search(ctx context.Context, prefix string, limit int) ([]Suggestion, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.root
	for _, r := range prefix {
		child, ok := n.children[r]
		if !ok {
			return []Suggestion{}, nil
		}
		n = child
	}

	w := walker{ctx: ctx, buf: []rune(prefix)}
	if err := w.collect(n); err != nil {
		return nil, fmt.Errorf("collecting suggestions for %q: %w", prefix, err)
	}
	slices.SortStableFunc(w.out, func(a, b Suggestion) int {
		return b.Frequency - a.Frequency
	})
	if limit > 0 && len(w.out) > limit {
		w.out = w.out[:limit]
	}
	return w.out, nil
}

type walker struct {
	ctx     context.Context
	buf     []rune
	out     []Suggestion
	visited int
}

func (w *walker) collect(n *node) error {
	w.visited++
	if w.visited%cancelCheckEvery == 0 && w.ctx.Err() != nil {
		return context.Cause(w.ctx)
	}
	if n.terminal {
		w.out = append(w.out, Suggestion{Term: string(w.buf), Frequency: n.freq})
	}
	keys := make([]rune, 0, len(n.children))
	for r := range n.children {
		keys = append(keys, r)
	}
	slices.Sort(keys)
	for _, r := range keys {
		w.buf = append(w.buf, r)
		if err := w.collect(n.children[r]); err != nil {
			return err
		}
		w.buf = w.buf[:len(w.buf)-1]
	}
	return nil
}
