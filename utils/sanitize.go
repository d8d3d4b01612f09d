package utils

import (
	"strings"
	"unicode"
)

// SanitizeText normalizes free-form user text (rejection reasons, notes):
// control characters and angle brackets are stripped, runs of whitespace
// collapse to one space, and the result is trimmed.
func SanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := false
	for _, r := range s {
		switch {
		case r == '<' || r == '>':
			continue
		case unicode.IsControl(r) || unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}

	return strings.TrimSpace(b.String())
}
