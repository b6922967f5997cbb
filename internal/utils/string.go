package utils

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// FormatWithCommas renders n with thousands separators, e.g. 48213 -> 48,213.
func FormatWithCommas[T ~int | ~int64 | ~uint32 | ~uint64](n T) string {
	neg := n < 0
	s := strconv.FormatUint(uint64(abs(n)), 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 && !(neg && b.Len() == 1) {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func abs[T ~int | ~int64 | ~uint32 | ~uint64](n T) T {
	if n < 0 {
		return -n
	}
	return n
}

// Truncate shortens s to at most max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
