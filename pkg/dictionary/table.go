package dictionary

import (
	"sort"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// FrequencyTable maps folded words to scores. Scores only go up.
// It is not safe for concurrent mutation; the engine guards it.
type FrequencyTable struct {
	trie *patricia.Trie
	size int
}

// NewFrequencyTable returns an empty table.
func NewFrequencyTable() *FrequencyTable {
	return &FrequencyTable{trie: patricia.NewTrie()}
}

// Set records score for word, keeping the larger value when the word is known.
// It reports whether the stored score changed.
func (t *FrequencyTable) Set(word string, score uint32) bool {
	if word == "" {
		return false
	}
	key := patricia.Prefix(word)
	if item := t.trie.Get(key); item != nil {
		if item.(uint32) >= score {
			return false
		}
		t.trie.Set(key, score)
		return true
	}
	t.trie.Insert(key, score)
	t.size++
	return true
}

// Get returns the score of word, 0 when unknown.
func (t *FrequencyTable) Get(word string) uint32 {
	score, _ := t.Lookup(word)
	return score
}

// Lookup returns the score of word and whether the word is present at all.
func (t *FrequencyTable) Lookup(word string) (uint32, bool) {
	if word == "" {
		return 0, false
	}
	item := t.trie.Get(patricia.Prefix(word))
	if item == nil {
		return 0, false
	}
	return item.(uint32), true
}

// Len returns the number of words in the table.
func (t *FrequencyTable) Len() int {
	return t.size
}

// WithPrefix lists the words starting with prefix, highest score first and
// lexical order among equal scores. A limit of 0 or less returns everything.
func (t *FrequencyTable) WithPrefix(prefix string, limit int) []FrequencyEntry {
	var entries []FrequencyEntry
	collect := func(p patricia.Prefix, item patricia.Item) error {
		entries = append(entries, FrequencyEntry{Word: string(p), Score: item.(uint32)})
		return nil
	}
	var err error
	if prefix == "" {
		err = t.trie.Visit(collect)
	} else {
		err = t.trie.VisitSubtree(patricia.Prefix(prefix), collect)
	}
	if err != nil {
		log.Errorf("Error visiting frequency table subtree: %v", err)
		return nil
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Word < entries[j].Word
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
