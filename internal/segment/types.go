package segment

// Kind classifies a single slice of the original text.
type Kind int

const (
	// Word is a run of letters only.
	Word Kind = iota
	// Number is a plain integer or decimal run of digits.
	Number
	// Identifier is a mixed token: alphanumerics possibly joined by
	// ., :, -, @ or / (covers emails, IP addresses, MACs, UUIDs, paths).
	Identifier
	// Whitespace is a run of spaces or tabs, never containing a line break.
	Whitespace
	// Punct is a run of punctuation characters.
	Punct
	// Linebreak is a single physical line break (\n, \r\n or \r).
	Linebreak
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case Word:
		return "word"
	case Number:
		return "number"
	case Identifier:
		return "identifier"
	case Whitespace:
		return "whitespace"
	case Punct:
		return "punct"
	case Linebreak:
		return "linebreak"
	default:
		return "unknown"
	}
}

// Segment is an atomic, type-tagged slice of the original text.
// Concatenating the Text of all segments in order reproduces the
// input byte-for-byte.
type Segment struct {
	Kind Kind
	Text string
	Pos  int // byte offset in the original text
}

// Matchable reports whether rewrite rules may be evaluated against this
// segment. Whitespace and line breaks always pass through untouched,
// which is what keeps the output's shape identical to the input's.
func (s Segment) Matchable() bool {
	return s.Kind != Whitespace && s.Kind != Linebreak
}
