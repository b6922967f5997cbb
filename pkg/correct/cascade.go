package correct

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bastiangx/revisa/pkg/dictionary"
)

type caseShape struct {
	firstUpper bool
	allUpper   bool
}

func captureCase(word string) caseShape {
	first, _ := utf8.DecodeRuneInString(word)
	shape := caseShape{firstUpper: unicode.IsUpper(first), allUpper: true}
	for _, r := range word {
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			shape.allUpper = false
			break
		}
	}
	return shape
}

func (s caseShape) restore(word string) string {
	switch {
	case s.allUpper && utf8.RuneCountInString(word) > 1:
		return strings.ToUpper(word)
	case s.firstUpper:
		first, size := utf8.DecodeRuneInString(word)
		if first == utf8.RuneError {
			return word
		}
		return string(unicode.ToUpper(first)) + word[size:]
	default:
		return word
	}
}

// run is the cascade. Every step short-circuits; the caller holds the read lock.
func (e *Engine) run(word string, aggressive bool) Result {
	res := Result{Original: word, Corrected: word, Stage: StageNone}
	lower := dictionary.Fold(word)
	n := utf8.RuneCountInString(lower)
	if e.policy.MaxWordLen > 0 && n > e.policy.MaxWordLen {
		return res
	}
	shape := captureCase(word)
	fix := func(c string, stage Stage) Result {
		res.Corrected = shape.restore(c)
		res.Stage = stage
		return res
	}

	// Typo entries win over the dictionary: some of them are valid but rare words.
	if c, ok := e.typos.Correction(lower); ok && c != lower {
		return fix(c, StageTypo)
	}

	if e.trie.Contains(lower) {
		if n >= e.policy.UpgradeMinLen && n <= e.policy.UpgradeMaxLen {
			if c, ok := e.upgrade(lower); ok {
				return fix(c, StageUpgrade)
			}
		}
		res.Stage = StageDictionary
		return res
	}

	if c, ok := e.transposition(lower); ok {
		return fix(c, StageTransposition)
	}

	if c, ok := e.phoneticMatch(lower); ok {
		return fix(c, StagePhonetic)
	}

	if n >= 3 {
		for _, s := range e.trie.Suggestions(lower, 1) {
			if n <= e.policy.ShortWordLen && s.Frequency <= e.policy.ShortWordMinFreq {
				continue
			}
			return fix(s.Word, StageFuzzy1)
		}
	}

	if aggressive && n >= 4 {
		for _, s := range e.trie.Suggestions(lower, 2) {
			if s.Frequency == 0 {
				continue
			}
			if abs(utf8.RuneCountInString(s.Word)-n) > e.policy.MaxLengthDelta {
				continue
			}
			return fix(s.Word, StageFuzzy2)
		}
	}

	return res
}

// upgrade swaps a rare dictionary word for a much more common neighbour one
// edit away. Words without a recorded score are never upgraded.
func (e *Engine) upgrade(word string) (string, bool) {
	own := uint64(e.freq.Get(word))
	if own == 0 {
		return "", false
	}
	threshold := own * uint64(e.policy.UpgradeRatio)
	for _, s := range e.trie.Suggestions(word, 1) {
		if s.Word == word {
			continue
		}
		if uint64(s.Frequency) > threshold {
			return s.Word, true
		}
	}
	return "", false
}

// transposition tries every adjacent swap and keeps the most frequent
// dictionary hit. The leftmost swap wins ties.
func (e *Engine) transposition(word string) (string, bool) {
	runes := []rune(word)
	var (
		best      string
		bestScore uint32
		found     bool
	)
	for i := 0; i+1 < len(runes); i++ {
		if runes[i] == runes[i+1] {
			continue
		}
		runes[i], runes[i+1] = runes[i+1], runes[i]
		candidate := string(runes)
		runes[i], runes[i+1] = runes[i+1], runes[i]

		if !e.trie.Contains(candidate) {
			continue
		}
		score := e.freq.Get(candidate)
		if !found || score > bestScore {
			best, bestScore, found = candidate, score, true
		}
	}
	return best, found
}

// phoneticMatch returns the most frequent word sharing word's sound key.
// The latest inserted word wins ties.
func (e *Engine) phoneticMatch(word string) (string, bool) {
	matches := e.phonetic.FindMatches(word)
	if len(matches) == 0 {
		return "", false
	}
	best := matches[0]
	bestScore := e.freq.Get(best)
	for _, m := range matches[1:] {
		if score := e.freq.Get(m); score >= bestScore {
			best, bestScore = m, score
		}
	}
	return best, true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
