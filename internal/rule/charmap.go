package rule

import "math/rand"

const (
	lowerChars = "abcdefghijklmnopqrstuvwxyz"
	upperChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars = "0123456789"
)

// charTable is a one-to-one character substitution map. Lowercase maps
// to lowercase, uppercase to uppercase and digits to digits, so the
// rewritten text keeps the exact length and case shape of the original.
type charTable map[rune]rune

// newCharTable builds a shuffled substitution table from the given
// random source. Zero is kept fixed so leading-zero widths (ports,
// permissions, padded ids) stay visually plausible.
func newCharTable(rnd *rand.Rand) charTable {
	table := make(charTable, len(lowerChars)+len(upperChars)+len(digitChars))
	addShuffled(table, rnd, []rune(lowerChars))
	addShuffled(table, rnd, []rune(upperChars))
	table['0'] = '0'
	addShuffled(table, rnd, []rune(digitChars[1:]))
	return table
}

// addShuffled assigns each rune in the charset a shuffled partner from
// the same charset, retrying a few times so that no rune maps to itself.
func addShuffled(table charTable, rnd *rand.Rand, charset []rune) {
	shuffled := shuffleDeranged(rnd, charset)
	for i, r := range charset {
		table[r] = shuffled[i]
	}
}

// shuffleDeranged shuffles until no element remains in its original
// position, giving up after a bounded number of attempts.
func shuffleDeranged(rnd *rand.Rand, origin []rune) []rune {
	shuffled := make([]rune, len(origin))
	copy(shuffled, origin)

	for attempt := 0; attempt < 10; attempt++ {
		rnd.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		if isDeranged(origin, shuffled) {
			return shuffled
		}
	}
	return shuffled
}

func isDeranged(origin, shuffled []rune) bool {
	for i := range origin {
		if len(origin) > 1 && origin[i] == shuffled[i] {
			return false
		}
	}
	return true
}

// apply rewrites text through the table, leaving unmapped runes
// (punctuation, joiners, unicode) untouched.
func (t charTable) apply(text string) string {
	out := make([]rune, 0, len(text))
	for _, r := range text {
		if mapped, ok := t[r]; ok {
			out = append(out, mapped)
		} else {
			out = append(out, r)
		}
	}
	return string(out)
}
