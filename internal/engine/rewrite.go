// Package engine orchestrates rule-driven rewriting: it segments input
// text, applies a compiled rule set through a per-run mapping cache and
// reassembles output that keeps the original's exact shape.
package engine

import (
	"fmt"
	"math/rand"

	"github.com/Geeks-Trident-LLC/rewordapp/internal/rule"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/segment"
)

// Options configures a single rewriting run.
type Options struct {
	// Seed drives every pseudo-random choice in the run. The engine
	// uses the value verbatim; reproducibility is the caller's to keep.
	Seed int64
	// Header, when non-empty, is prepended to the output followed by
	// the input's linebreak convention.
	Header string
	// Mappings preloads replacements established by earlier runs so the
	// same secret keeps the same obfuscation across invocations.
	Mappings []Mapping
}

// Warning reports a rule whose replacement generator failed at runtime.
// The affected segment passed through unchanged and the run continued.
type Warning struct {
	Rule   string `json:"rule"`
	Pos    int    `json:"pos"`
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Result is the outcome of one rewriting run.
type Result struct {
	Output   string
	Warnings []Warning
	// Mappings holds every replacement established during the run, in
	// the order it was first created, for optional persistence.
	Mappings []Mapping
}

// Rewrite applies the compiled rule set to text. Rules are evaluated in
// (priority desc, declaration order asc) sequence against every word,
// number, identifier and punctuation segment; the first matching rule
// wins and remaining rules are skipped for that segment. Whitespace and
// linebreak segments are never matched, which is what guarantees shape
// preservation.
//
// Rewrite always produces output once compilation succeeded: generator
// failures degrade to pass-through warnings. The returned error is
// reserved for internal invariant violations, which indicate an engine
// defect rather than bad input.
func Rewrite(text string, set *rule.Set, opts Options) (Result, error) {
	segs := segment.Split(text)

	cache := NewMappingCache()
	cache.Seed(opts.Mappings)

	rnd := rand.New(rand.NewSource(opts.Seed))
	rules := set.Rules()
	generators := make([]rule.Generator, len(rules))
	for i, r := range rules {
		generators[i] = r.NewGenerator(rnd)
	}

	result := Result{}
	out := make([]segment.Segment, 0, len(segs))
	line := 1

	for _, seg := range segs {
		if seg.Kind == segment.Linebreak {
			line++
			for _, g := range generators {
				g.ResetLine()
			}
			out = append(out, seg)
			continue
		}
		if !seg.Matchable() {
			out = append(out, seg)
			continue
		}

		rewritten := seg
		for i, r := range rules {
			if !r.Match(seg.Text) {
				continue
			}

			gen := generators[i]
			replacement, err := cache.LookupOrCreate(r.Name, seg.Text, func() (string, error) {
				return gen.Generate(seg.Text)
			})
			if err != nil {
				result.Warnings = append(result.Warnings, Warning{
					Rule:   r.Name,
					Pos:    seg.Pos,
					Line:   line,
					Reason: err.Error(),
				})
				break
			}

			rewritten = segment.Segment{Kind: seg.Kind, Text: replacement, Pos: seg.Pos}
			break
		}
		out = append(out, rewritten)
	}

	if err := checkShape(segs, out); err != nil {
		return Result{}, fmt.Errorf("rewrite: %w", err)
	}

	result.Output = Assemble(out, opts.Header)
	result.Mappings = cache.Snapshot()
	return result, nil
}
