// Package typo holds the curated whole-word corrections and suffix rules.
//
// The table is a TOML data asset. The default one is embedded in the binary
// and a replacement can be loaded from disk, so the corpus can be maintained
// without touching code:
//
//	[words]
//	vc = "você"
//	amanha = "amanhã"
//
//	[[suffix]]
//	from = "cao"
//	to = "ção"
package typo

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

//go:embed typos.toml
var defaultTable string

const (
	// minSuffixWordLen is exclusive: suffix rules only see words longer than this.
	minSuffixWordLen = 4
	minSuffixStemLen = 2
)

// SuffixRule rewrites a word ending.
type SuffixRule struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

type table struct {
	Words  map[string]string `toml:"words"`
	Suffix []SuffixRule      `toml:"suffix"`
}

// Model answers Correction lookups. It is read-only after construction.
type Model struct {
	words    map[string]string
	suffixes []SuffixRule
}

// New returns the model built from the embedded table.
func New() *Model {
	m, err := Load(strings.NewReader(defaultTable))
	if err != nil {
		// The embedded asset is covered by tests; reaching this is a build defect.
		panic(fmt.Sprintf("typo: embedded table: %v", err))
	}
	return m
}

// Empty returns a model with no entries.
func Empty() *Model {
	return &Model{words: make(map[string]string)}
}

// LoadFile reads a TOML table from path.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open typo table: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a TOML table. Self mappings and keys that collide after
// lowercasing are dropped with a warning; TOML itself rejects duplicate keys.
func Load(r io.Reader) (*Model, error) {
	var t table
	if _, err := toml.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode typo table: %w", err)
	}

	m := &Model{
		words:    make(map[string]string, len(t.Words)),
		suffixes: make([]SuffixRule, 0, len(t.Suffix)),
	}
	for k, v := range t.Words {
		key := strings.ToLower(strings.TrimSpace(k))
		val := strings.TrimSpace(v)
		switch {
		case key == "" || val == "":
			log.Warnf("Skipping empty typo entry %q = %q", k, v)
			continue
		case key == val:
			log.Warnf("Skipping self-mapping typo entry %q", k)
			continue
		}
		if prev, dup := m.words[key]; dup {
			log.Warnf("Skipping duplicate typo entry %q (already maps to %q)", key, prev)
			continue
		}
		m.words[key] = val
	}
	for _, rule := range t.Suffix {
		if rule.From == "" || rule.From == rule.To {
			log.Warnf("Skipping invalid suffix rule %q -> %q", rule.From, rule.To)
			continue
		}
		m.suffixes = append(m.suffixes, rule)
	}
	log.Debugf("Typo model loaded: %d words, %d suffix rules", len(m.words), len(m.suffixes))
	return m, nil
}

// Correction returns the replacement for a lowercase word. Whole-word entries
// win over suffix rules; suffix rules are tried in declaration order.
func (m *Model) Correction(wordLower string) (string, bool) {
	if c, ok := m.words[wordLower]; ok {
		return c, true
	}
	if utf8.RuneCountInString(wordLower) <= minSuffixWordLen {
		return "", false
	}
	for _, rule := range m.suffixes {
		if !strings.HasSuffix(wordLower, rule.From) {
			continue
		}
		stem := wordLower[:len(wordLower)-len(rule.From)]
		if utf8.RuneCountInString(stem) >= minSuffixStemLen {
			return stem + rule.To, true
		}
	}
	return "", false
}

// Len returns the number of whole-word entries.
func (m *Model) Len() int {
	return len(m.words)
}

// Suffixes returns a copy of the suffix rules in evaluation order.
func (m *Model) Suffixes() []SuffixRule {
	out := make([]SuffixRule, len(m.suffixes))
	copy(out, m.suffixes)
	return out
}
