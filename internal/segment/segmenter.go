// Package segment splits raw text into an ordered sequence of typed
// segments without losing a single byte of the original.
package segment

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var numberRe = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// Split segments text into words, numbers, identifiers, whitespace runs,
// punctuation runs and line breaks. It is a pure function: identical
// input always yields identical segments, and Join(Split(text)) == text.
func Split(text string) []Segment {
	var segs []Segment

	i := 0
	for i < len(text) {
		start := i
		r, size := utf8.DecodeRuneInString(text[i:])

		switch {
		case r == '\n':
			i += size
			segs = append(segs, Segment{Kind: Linebreak, Text: text[start:i], Pos: start})

		case r == '\r':
			i += size
			if i < len(text) && text[i] == '\n' {
				i++
			}
			segs = append(segs, Segment{Kind: Linebreak, Text: text[start:i], Pos: start})

		case isBlank(r):
			i = scanWhile(text, i+size, isBlank)
			segs = append(segs, Segment{Kind: Whitespace, Text: text[start:i], Pos: start})

		case isTokenRune(r):
			i = scanToken(text, i+size)
			tok := text[start:i]
			segs = append(segs, Segment{Kind: classify(tok), Text: tok, Pos: start})

		default:
			i = scanWhile(text, i+size, isPunctRune)
			segs = append(segs, Segment{Kind: Punct, Text: text[start:i], Pos: start})
		}
	}

	return segs
}

// Join reassembles segments into text. It is the exact inverse of Split
// for an unmodified segment sequence.
func Join(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text)
	}
	return b.String()
}

// CountLinebreaks returns the number of Linebreak segments.
func CountLinebreaks(segs []Segment) int {
	n := 0
	for _, s := range segs {
		if s.Kind == Linebreak {
			n++
		}
	}
	return n
}

// scanToken consumes a token starting at offset i. A run of joiner
// characters (., :, -, @, /) stays inside the token when a token rune
// follows the run, so "192.168.1.1", "https://x.com/a" and "fe80::1"
// stay whole while "alice," and trailing "end." split at the
// punctuation. A trailing hyphen run also stays inside a token that is
// already hyphenated, keeping mode strings like "rw-r--r--" whole.
func scanToken(text string, i int) int {
	hyphenated := false
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if isTokenRune(r) {
			i += size
			continue
		}
		if !isJoiner(r) {
			break
		}
		j := i + size
		allHyphens := r == '-'
		for j < len(text) {
			jr, jsize := utf8.DecodeRuneInString(text[j:])
			if !isJoiner(jr) {
				break
			}
			if jr != '-' {
				allHyphens = false
			}
			j += jsize
		}
		if j < len(text) {
			if next, _ := utf8.DecodeRuneInString(text[j:]); isTokenRune(next) {
				if allHyphens {
					hyphenated = true
				}
				i = j
				continue
			}
		}
		if allHyphens && hyphenated {
			i = j
		}
		break
	}
	return i
}

func scanWhile(text string, i int, pred func(rune) bool) int {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !pred(r) {
			break
		}
		i += size
	}
	return i
}

func classify(tok string) Kind {
	if numberRe.MatchString(tok) {
		return Number
	}
	for _, r := range tok {
		if !unicode.IsLetter(r) {
			return Identifier
		}
	}
	return Word
}

func isBlank(r rune) bool {
	return r != '\n' && r != '\r' && unicode.IsSpace(r)
}

func isTokenRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isJoiner(r rune) bool {
	switch r {
	case '.', ':', '-', '@', '/':
		return true
	}
	return false
}

func isPunctRune(r rune) bool {
	return !isBlank(r) && !isTokenRune(r) && r != '\n' && r != '\r'
}
