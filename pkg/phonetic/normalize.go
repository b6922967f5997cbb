// Package phonetic folds Brazilian Portuguese spellings that sound alike and
// indexes dictionary words by that folded form.
//
// The equivalences covered are the /s/ sibilants (s, ss, c before e/i, ç, sc, z),
// x and ch, g before e/i and j, syllable-final l and u, and nh/lh against ni/li.
package phonetic

import (
	"strings"
)

// maxVariants bounds GenerateVariants on long words full of sibilants.
const maxVariants = 1024

type rule struct {
	from string
	to   []string
}

// variantRules are applied in order; every rule sees the variants produced by earlier ones.
var variantRules = []rule{
	{"ss", []string{"ç", "c", "sc"}},
	{"ç", []string{"ss", "s", "c"}},
	{"sc", []string{"ss", "ç", "c"}},
	{"s", []string{"z"}},
	{"z", []string{"s"}},
	{"ce", []string{"se", "sse"}},
	{"ci", []string{"si", "ssi"}},
	{"se", []string{"ce"}},
	{"si", []string{"ci"}},
	{"x", []string{"ch", "s"}},
	{"ch", []string{"x"}},
	{"ge", []string{"je"}},
	{"gi", []string{"ji"}},
	{"je", []string{"ge"}},
	{"ji", []string{"gi"}},
	{"ou", []string{"ol"}},
	{"ol", []string{"ou"}},
	{"nh", []string{"ni"}},
	{"lh", []string{"li"}},
}

// GenerateVariants returns word followed by every distinct spelling reachable
// by applying the substitution table, in discovery order.
func GenerateVariants(word string) []string {
	results := []string{word}
	seen := map[string]struct{}{word: {}}

	for _, r := range variantRules {
		// Only variants that existed before this rule are expanded by it.
		current := len(results)
		for i := 0; i < current; i++ {
			if !strings.Contains(results[i], r.from) {
				continue
			}
			for _, alt := range r.to {
				variant := strings.ReplaceAll(results[i], r.from, alt)
				if _, dup := seen[variant]; dup {
					continue
				}
				if len(results) >= maxVariants {
					return results
				}
				seen[variant] = struct{}{}
				results = append(results, variant)
			}
		}
	}
	return results
}

// sibilantFolds run in order. The uppercase marker keeps already folded
// sibilants from being matched again by later steps.
var sibilantFolds = []struct{ from, to string }{
	{"ss", "S"},
	{"ç", "S"},
	{"sc", "S"},
	{"s", "S"},
	{"z", "S"},
	{"S", "s"},
}

// Normalize reduces word to its canonical sound key. Every sibilant spelling
// collapses to a single "s".
func Normalize(word string) string {
	key := word
	for _, f := range sibilantFolds {
		key = strings.ReplaceAll(key, f.from, f.to)
	}
	return key
}
