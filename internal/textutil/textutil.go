// Package textutil provides line tokenization utilities for parallel corpora.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

// Fields splits a corpus line into raw tokens on runs of whitespace.
func Fields(line string) []string {
	return strings.FieldsFunc(line, unicode.IsSpace)
}

// WithMarker returns the tokens of line prefixed by marker.
// An empty marker leaves the tokens unchanged.
func WithMarker(marker, line string) []string {
	tokens := Fields(line)
	if marker == "" {
		return tokens
	}
	out := make([]string, 0, len(tokens)+1)
	out = append(out, marker)
	return append(out, tokens...)
}

var (
	newlineRe    = regexp.MustCompile(`[\n\r\t]`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// NormalizeWhitespaces replaces newlines, tabs and runs of whitespace with a single space.
func NormalizeWhitespaces(text string) string {
	text = newlineRe.ReplaceAllString(text, " ")
	return multiSpaceRe.ReplaceAllString(text, " ")
}

// Normalize lowercases text and normalizes whitespace.
func Normalize(text string) string {
	return NormalizeWhitespaces(strings.ToLower(text))
}

// CleanSegment collapses whitespace inside a segment and trims both ends,
// producing a single corpus line.
func CleanSegment(text string) string {
	return strings.TrimSpace(NormalizeWhitespaces(text))
}
