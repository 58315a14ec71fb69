package chunking

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SplitSentences splits text after '.', '!', '?' or '…' when followed by
// whitespace, and at line breaks. Units are trimmed; empty ones are dropped.
func SplitSentences(text string) []string {
	var (
		units []string
		start int
	)
	emit := func(end int) {
		if s := strings.TrimSpace(text[start:end]); s != "" {
			units = append(units, s)
		}
		start = end
	}

	for i, r := range text {
		switch r {
		case '\n':
			emit(i)
		case '.', '!', '?', '…':
			next := i + utf8.RuneLen(r)
			if next >= len(text) {
				continue
			}
			nr, _ := utf8.DecodeRuneInString(text[next:])
			if unicode.IsSpace(nr) {
				emit(next)
			}
		}
	}
	emit(len(text))
	return units
}

// SplitParagraphs returns the non-blank lines of text, trimmed of trailing
// whitespace. Leading indentation is kept so nested list items stay nested.
func SplitParagraphs(text string) []string {
	var units []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if strings.TrimSpace(line) == "" {
			continue
		}
		units = append(units, line)
	}
	return units
}
