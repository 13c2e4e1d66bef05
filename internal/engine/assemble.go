package engine

import (
	"fmt"
	"strings"

	"github.com/Geeks-Trident-LLC/rewordapp/internal/segment"
)

// Assemble concatenates segment texts in original order. When header is
// non-empty it is prepended, followed by the same linebreak convention
// detected in the segments (or "\n" when the input had none).
func Assemble(segs []segment.Segment, header string) string {
	var b strings.Builder
	if header != "" {
		b.WriteString(header)
		b.WriteString(detectNewline(segs))
	}
	for _, s := range segs {
		b.WriteString(s.Text)
	}
	return b.String()
}

// detectNewline returns the input's linebreak convention, taken from
// its first Linebreak segment.
func detectNewline(segs []segment.Segment) string {
	for _, s := range segs {
		if s.Kind == segment.Linebreak {
			return s.Text
		}
	}
	return "\n"
}

// checkShape verifies the structural invariant between input and output
// segments: same segment count, identical linebreaks, identical
// untouched whitespace, and no replacement smuggling in a physical
// break. A violation means the output's line structure would no longer
// match the input's and must fail loudly.
func checkShape(in, out []segment.Segment) error {
	if len(in) != len(out) {
		return fmt.Errorf("structural invariant violated: segment count changed from %d to %d", len(in), len(out))
	}

	inBreaks, outBreaks := segment.CountLinebreaks(in), segment.CountLinebreaks(out)
	if inBreaks != outBreaks {
		return fmt.Errorf("structural invariant violated: linebreak count changed from %d to %d", inBreaks, outBreaks)
	}

	for i := range in {
		if in[i].Kind != segment.Whitespace && in[i].Kind != segment.Linebreak {
			// Compilation rejects replacements containing break
			// characters, but seeded mappings arrive past the compiler,
			// so the physical check stays.
			if strings.ContainsAny(out[i].Text, "\r\n") {
				return fmt.Errorf("structural invariant violated: replacement at offset %d introduces a line break", in[i].Pos)
			}
			continue
		}
		if out[i].Kind != in[i].Kind || out[i].Text != in[i].Text {
			return fmt.Errorf("structural invariant violated: %s segment at offset %d changed", in[i].Kind, in[i].Pos)
		}
	}

	return nil
}
