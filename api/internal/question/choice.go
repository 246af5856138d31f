package question

import (
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// CheckChoice grades a multiple-choice answer locally. The answer may be the
// choice text or its 1-based position. Comparison ignores case, surrounding
// whitespace and unicode normalization differences.
func CheckChoice(q MultipleChoiceQuestion, answer string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" || strings.TrimSpace(q.CorrectAnswer) == "" {
		return false
	}
	if sameText(answer, q.CorrectAnswer) {
		return true
	}
	for _, c := range q.Choices {
		if sameText(answer, c) {
			// the answer names some other choice
			return false
		}
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(q.Choices) {
		return sameText(q.Choices[n-1], q.CorrectAnswer)
	}
	return false
}

// sameText is equality under normalized case folding: each side must match the other.
func sameText(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return fuzzy.MatchNormalizedFold(a, b) && fuzzy.MatchNormalizedFold(b, a)
}
