package grading

import "strings"

// foldText lowercases and trims surrounding whitespace. Inner whitespace and
// punctuation are significant.
func foldText(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}
