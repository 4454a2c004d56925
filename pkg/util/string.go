package util

import (
	"regexp"
	"strings"
)

var (
	digitsPattern     = regexp.MustCompile(`\d`)
	tagPattern        = regexp.MustCompile(`(?is)<[^>]*>`)
	scriptPattern     = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// ExtractDigits returns only the decimal digits of s, so values like
// "1,200,000" or "约120万" reduce to their numeric core.
func ExtractDigits(s string) string {
	return strings.Join(digitsPattern.FindAllString(s, -1), "")
}

// StripHTML produces a crude plain-text rendering of an HTML document by
// dropping script/style blocks, removing tags and collapsing whitespace.
func StripHTML(html string) string {
	text := scriptPattern.ReplaceAllString(html, " ")
	text = tagPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Truncate cuts s to at most n bytes on a rune boundary.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	out := make([]rune, 0, len(runes))
	size := 0
	for _, r := range runes {
		size += len(string(r))
		if size > n {
			break
		}
		out = append(out, r)
	}
	return string(out)
}
