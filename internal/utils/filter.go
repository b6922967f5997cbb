package utils

import (
	"unicode"
	"unicode/utf8"
)

// IsSeparator checks if a rune separates words inside a token
func IsSeparator(r rune) bool {
	return r == '-' || r == '\''
}

// IsWordRune reports whether r can be part of a word: letters plus the
// combining marks of decomposed accents.
func IsWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.Is(unicode.Mn, r)
}

// ContainsNumbers checks if a string contains any numeric digits
func ContainsNumbers(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// IsOnlyNumbers checks if a string consists entirely of numeric digits
func IsOnlyNumbers(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ContainsSpecialChars reports runes that are neither word runes nor separators.
func ContainsSpecialChars(s string) bool {
	for _, r := range s {
		if !IsWordRune(r) && !IsSeparator(r) {
			return true
		}
	}
	return false
}

// IsValidInput checks if a prefix is worth a completion lookup. Numbers,
// symbols, invalid UTF-8 and runs like "aaaa" are rejected.
func IsValidInput(s string) bool {
	if len(s) == 0 || !utf8.ValidString(s) {
		return false
	}
	if IsOnlyNumbers(s) || ContainsNumbers(s) {
		return false
	}
	if ContainsSpecialChars(s) {
		return false
	}
	return !IsRepetitive(s)
}

// IsRepetitive checks if a string is one rune repeated three or more times.
func IsRepetitive(s string) bool {
	if utf8.RuneCountInString(s) <= 2 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(s)
	for _, r := range s {
		if unicode.ToLower(r) != unicode.ToLower(first) {
			return false
		}
	}
	return true
}
