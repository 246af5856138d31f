package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var fenceRe = regexp.MustCompile("```[A-Za-z0-9_+-]*")

// StripCodeFences removes every triple-backtick fence marker, with or without a
// language tag, and trims the result.
func StripCodeFences(s string) string {
	s = fenceRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// Truncate cuts s to at most n runes, appending an ellipsis when it cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
