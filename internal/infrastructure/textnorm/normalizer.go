package textnorm

import (
	"regexp"
	"strings"
)

// midwordBreak matches a line break wedged between two alphanumeric
// characters, the artifact PDF extraction leaves when a word is split
// across lines. Only newline-bearing runs qualify; ordinary spaces
// between words survive.
var midwordBreak = regexp.MustCompile(`([a-zA-Z0-9])[ \t]*\r?\n[ \t\r\n]*([a-zA-Z0-9])`)

var whitespaceRun = regexp.MustCompile(`\s+`)

type Normalizer struct{}

func New() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) Normalize(text string) string {
	return Normalize(text)
}

func (n *Normalizer) Excerpt(text string, limit int) string {
	return Excerpt(text, limit)
}

// Normalize flattens extracted text: repairs mid-word line breaks, then
// collapses every whitespace run to a single space and trims the ends.
// Idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	for {
		repaired := midwordBreak.ReplaceAllString(text, "$1$2")
		if repaired == text {
			break
		}
		text = repaired
	}
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Excerpt bounds normalized text to at most limit bytes for use as
// classifier input. A non-positive limit disables truncation.
func Excerpt(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	return strings.TrimSpace(text[:limit])
}
