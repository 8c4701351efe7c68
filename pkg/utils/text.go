// Package utils provides shared utilities for text, emoji filtering, and logging.
package utils

import (
	"strings"
	"unicode"
)

// Normalize lowercases s, strips every rune that is not a letter, digit, or
// whitespace, and collapses whitespace runs to a single space. Trivially
// different phrasings ("Hello!!" vs "hello") normalize to the same string,
// which improves cluster reuse downstream.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Truncate returns s truncated to maxLen characters, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
