// Package sanitize cleans user-provided text before it reaches the CRM or an email.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxFieldLength caps a single free-text field, in runes.
const MaxFieldLength = 500

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)

	entityReplacer = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", "\"",
		"&#39;", "'",
		"&nbsp;", " ",
	)
)

// StripHTML removes markup. Entities are decoded and the result stripped
// again so encoded tags do not survive.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = entityReplacer.Replace(result)
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text strips markup, collapses whitespace runs to one space and truncates
// to MaxFieldLength runes.
func Text(s string) string {
	result := whitespaceRegex.ReplaceAllString(StripHTML(s), " ")
	return Truncate(result, MaxFieldLength)
}

// Truncate cuts s to at most n runes without splitting a character.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}
