package citation

import (
	"strings"
	"unicode"
)

// SplitSentences splits an answer into index-stable sentences while
// preserving the original text exactly: concatenating the returned slice
// reproduces the input byte for byte. Sentences keep their trailing
// terminator (punctuation or newline), so headings, table rows and blank
// lines survive untouched through insertion.
//
// CJK terminators (。？！) always end a sentence. ASCII terminators (.?!)
// end one only when followed by a newline, end of text, or a space and an
// uppercase letter, which keeps decimals and abbreviations intact.
func SplitSentences(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	var sentences []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}

	for i, r := range runes {
		current.WriteRune(r)

		switch r {
		case '。', '？', '！', '\n':
			flush()
		case '.', '?', '!':
			if asciiBoundary(runes, i) {
				flush()
			}
		}
	}
	flush()

	return sentences
}

// asciiBoundary reports whether the ASCII terminator at position i ends a
// sentence.
func asciiBoundary(runes []rune, i int) bool {
	// Not a boundary inside numbers like "3.14".
	if runes[i] == '.' && i > 0 && unicode.IsDigit(runes[i-1]) {
		return false
	}
	if i == len(runes)-1 {
		return true
	}
	next := runes[i+1]
	if next == '\n' {
		// Let the newline terminate the sentence so it stays attached.
		return false
	}
	if next != ' ' {
		return false
	}
	// Require an uppercase continuation; "e.g. foo" stays together.
	for j := i + 2; j < len(runes); j++ {
		if runes[j] == ' ' {
			continue
		}
		return unicode.IsUpper(runes[j])
	}
	return true
}

// isStructural reports whether a sentence is excluded from matching:
// blank lines, markdown headings, table rows and sentences that already
// carry a citation marker.
func isStructural(sentence string) bool {
	trimmed := strings.TrimSpace(sentence)
	if trimmed == "" {
		return true
	}
	if strings.HasPrefix(trimmed, "#") {
		return true
	}
	if strings.Contains(trimmed, "|") {
		return true
	}
	return hasMarker(trimmed)
}

// stripListMarker splits a leading list marker ("1. ", "a) ", "- ") off a
// trimmed sentence so matching sees only the content. Returns the marker
// prefix (possibly empty) and the remaining content.
func stripListMarker(sentence string) (prefix, content string) {
	if m := listMarkerHead.FindString(sentence); m != "" {
		return m, sentence[len(m):]
	}
	return "", sentence
}
