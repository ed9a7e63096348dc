// Package text provides utilities for text processing and analysis.
// This package includes reusable functions for character counting and
// whitespace normalization shared by the chunking core and the extractors.
package text

import (
	"regexp"
	"strings"
)

// CountRunes counts the number of Unicode characters (runes) in the given text.
// This function correctly handles multi-byte characters including Japanese,
// Chinese, emoji, and other Unicode characters by counting runes instead of
// bytes. The token estimator builds on this so that CJK documents are
// budgeted the same way as ASCII ones.
//
// Examples:
//
//	CountRunes("hello")          // returns 5 (ASCII text)
//	CountRunes("こんにちは")       // returns 5 (Japanese text)
//	CountRunes("hello世界")       // returns 7 (mixed text)
//	CountRunes("")               // returns 0 (empty string)
func CountRunes(text string) int {
	return len([]rune(text))
}

var multiSpace = regexp.MustCompile(`\s+`)

// CollapseSpaces replaces every run of whitespace (including newlines) with a
// single space and trims the result. Transcript cleanup uses this to flatten
// subtitle lines into continuous prose.
func CollapseSpaces(text string) string {
	return strings.TrimSpace(multiSpace.ReplaceAllString(text, " "))
}

// IsBlank reports whether the text contains no non-whitespace characters.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
