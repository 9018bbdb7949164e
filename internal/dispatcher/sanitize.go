package dispatcher

import (
	"strings"
	"unicode"
)

// Sanitize strips control characters from model output before emission,
// keeping newlines and tabs. The generation client never rewrites output
// itself; this is the single place it happens.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
