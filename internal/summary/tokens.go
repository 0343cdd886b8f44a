package summary

import "strings"

// Token accounting uses whitespace-delimited words. The estimate only has
// to be an upper-bound heuristic consistent between the estimator and the
// trimmer; exact tokenizer parity with the model is not required.

// countTokens returns the token count of s.
func countTokens(s string) int {
	return len(strings.Fields(s))
}

// trimFront drops the first n tokens of s, oldest content first, and
// rejoins the remainder with single spaces. n at or beyond the token
// count yields the empty string.
func trimFront(s string, n int) string {
	if n <= 0 {
		return s
	}
	fields := strings.Fields(s)
	if n >= len(fields) {
		return ""
	}
	return strings.Join(fields[n:], " ")
}
