package app

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics strips combining marks after NFD decomposition, so that
// "élysée" and "elysee" normalize to the same string.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeAnswer lowercases, trims, and removes diacritics.
func NormalizeAnswer(answer string) string {
	folded, _, err := transform.String(foldDiacritics, answer)
	if err != nil {
		folded = answer
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// AnswersMatch compares a submitted answer with the expected one,
// insensitive to case, surrounding whitespace, and diacritics.
func AnswersMatch(submitted, expected string) bool {
	return NormalizeAnswer(submitted) == NormalizeAnswer(expected)
}
