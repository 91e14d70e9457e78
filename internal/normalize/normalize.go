// Package normalize cleans free text coming in from clients before it is stored.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/text/unicode/norm"
)

var (
	// htmlTag detects markup pasted from a rich-text editor.
	htmlTag = regexp.MustCompile(`<(p|br|div|span|b|i|u|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

	nonSlug  = regexp.MustCompile(`[^a-z0-9]+`)
	spaceRun = regexp.MustCompile(`\s+`)
)

// Text trims surrounding space, drops NUL bytes and composes the string to NFC.
func Text(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
	return norm.NFC.String(strings.TrimSpace(s))
}

// TagName normalizes a tag name: Text, then inner whitespace collapsed to a
// single space, so composed and decomposed spellings compare equal.
func TagName(s string) string {
	return spaceRun.ReplaceAllString(Text(s), " ")
}

// Notes converts HTML from a rich-text editor into Markdown. Plain text is
// returned as Text would return it. If conversion fails the text is kept.
func Notes(s string) string {
	s = Text(s)
	if s == "" || !htmlTag.MatchString(strings.ToLower(s)) {
		return s
	}
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(md)
}

// Slug converts s into a lowercase ASCII slug: "São Paulo / Centro" -> "sao-paulo-centro".
func Slug(s string) string {
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
	s = nonSlug.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}
