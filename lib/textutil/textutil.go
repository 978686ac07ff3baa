package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Collapse trims s and replaces every run of whitespace with a single space.
func Collapse(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// Truncate cuts s down to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// RemoveNonPrintable drops every rune that is neither printable nor
// whitespace.
func RemoveNonPrintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

// Normalize is Collapse on printable text only, the form used for every
// piece of text read off a page.
func Normalize(s string) string {
	// non-breaking spaces show up between amounts and currency symbols
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return Collapse(RemoveNonPrintable(s))
}
