// Package trie is the core index of the corrector: a rune keyed prefix tree with
// frequency scores on terminal nodes and a bounded Levenshtein search over it.
package trie

import (
	"sort"
)

// Node is a single trie node. A reachable node that is not terminal only represents a prefix.
type Node struct {
	Terminal  bool
	Frequency uint32
	Children  map[rune]*Node
}

// Suggestion is one candidate produced by Suggestions.
type Suggestion struct {
	Word      string
	Distance  int
	Frequency uint32
}

// Trie is append-only: words are never removed and stored frequencies only go up.
// It is not safe for concurrent mutation; callers guard it.
type Trie struct {
	root  *Node
	words int
}

// New creates an empty trie.
func New() *Trie {
	return &Trie{root: newNode()}
}

func newNode() *Node {
	return &Node{Children: make(map[rune]*Node)}
}

// Insert adds word as a terminal. If the word already exists, its frequency is
// raised to frequency when larger and left alone otherwise.
func (t *Trie) Insert(word string, frequency uint32) {
	if word == "" {
		return
	}
	node := t.root
	for _, r := range word {
		child, ok := node.Children[r]
		if !ok {
			child = newNode()
			node.Children[r] = child
		}
		node = child
	}
	if !node.Terminal {
		node.Terminal = true
		t.words++
	}
	if frequency > node.Frequency {
		node.Frequency = frequency
	}
}

// Contains reports exact membership.
func (t *Trie) Contains(word string) bool {
	node := t.find(word)
	return node != nil && node.Terminal
}

// Frequency returns the score stored for word and whether word is a member.
func (t *Trie) Frequency(word string) (uint32, bool) {
	node := t.find(word)
	if node == nil || !node.Terminal {
		return 0, false
	}
	return node.Frequency, true
}

// Len returns the number of distinct words.
func (t *Trie) Len() int {
	return t.words
}

func (t *Trie) find(word string) *Node {
	node := t.root
	for _, r := range word {
		next, ok := node.Children[r]
		if !ok {
			return nil
		}
		node = next
	}
	return node
}

// Suggestions returns every word within maxDistance edits of word, ordered by
// ascending distance, then descending frequency, then lexically so equal
// candidates come back in a stable order.
func (t *Trie) Suggestions(word string, maxDistance int) []Suggestion {
	if maxDistance < 0 {
		return nil
	}
	s := &search{
		target:  []rune(word),
		max:     maxDistance,
		results: make([]Suggestion, 0, 8),
	}
	firstRow := make([]int, len(s.target)+1)
	for i := range firstRow {
		firstRow[i] = i
	}
	// The empty word sits at the root and is never terminal, so the walk starts at its children.
	s.path = make([]rune, 0, len(s.target)+maxDistance)
	for r, child := range t.root.Children {
		s.walk(child, r, firstRow)
	}

	sort.Slice(s.results, func(i, j int) bool {
		a, b := s.results[i], s.results[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		return a.Word < b.Word
	})
	return s.results
}
