package correct

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CorrectText corrects each run of letters in text and copies everything else
// through byte for byte.
func (e *Engine) CorrectText(text string, aggressiveness int) string {
	if text == "" {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))

	start := -1
	for i, r := range text {
		letter := unicode.IsLetter(r) || unicode.Is(unicode.Mn, r)
		switch {
		case letter && start < 0:
			start = i
		case !letter && start >= 0:
			b.WriteString(e.Correct(text[start:i], aggressiveness))
			start = -1
		}
		if !letter {
			// copied from the source so invalid bytes survive untouched
			_, size := utf8.DecodeRuneInString(text[i:])
			b.WriteString(text[i : i+size])
		}
	}
	if start >= 0 {
		b.WriteString(e.Correct(text[start:], aggressiveness))
	}
	return b.String()
}
