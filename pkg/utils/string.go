package utils

import (
	"strings"
	"unicode/utf8"
)

// TruncateString shortens s to at most maxRunes runes, replacing the tail with
// an ellipsis when it had to cut.
func TruncateString(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}

	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}

	if maxRunes <= 3 {
		return string([]rune(s)[:maxRunes])
	}

	return string([]rune(s)[:maxRunes-3]) + "..."
}

// CompressAllWhitespace replaces all whitespace sequences (including newlines) with a single space.
func CompressAllWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
