package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Geeks-Trident-LLC/rewordapp/internal/rule"
)

func mustCompile(t *testing.T, defs ...rule.Definition) *rule.Set {
	t.Helper()
	set, err := rule.Compile(defs)
	require.NoError(t, err)
	return set
}

func TestRewriteLiteralCounter(t *testing.T) {
	set := mustCompile(t, rule.Definition{
		Name:        "ids",
		Pattern:     rule.ClassPattern("number"),
		Replacement: rule.CounterReplacement("ID-%d"),
	})

	res, err := Rewrite("user: alice, id: 42", set, Options{Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, "user: alice, id: ID-1", res.Output)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Mappings, 1)
	assert.Equal(t, Mapping{Rule: "ids", Original: "42", Replacement: "ID-1"}, res.Mappings[0])
}

func TestRewriteConsistentRepeats(t *testing.T) {
	set := mustCompile(t, rule.Definition{
		Name:          "names",
		Pattern:       rule.LiteralPattern("alice"),
		Replacement:   rule.PoolReplacement([]string{"bob", "carol", "dave"}, true),
		CaseSensitive: true,
	})

	res, err := Rewrite("alice met alice and alice", set, Options{Seed: 5})
	require.NoError(t, err)

	fields := strings.Fields(res.Output)
	require.Len(t, fields, 5)
	assert.Equal(t, fields[0], fields[2], "the same original must map to the same replacement")
	assert.Equal(t, fields[0], fields[4])
	assert.NotEqual(t, "alice", fields[0])
	assert.Len(t, res.Mappings, 1, "repeats reuse the cached mapping instead of drawing again")
}

func TestRewriteNoMatchPassThrough(t *testing.T) {
	set := mustCompile(t, rule.Definition{
		Name:        "ips",
		Pattern:     rule.ClassPattern("ipv4"),
		Replacement: rule.CounterReplacement("HOST-%d"),
	})

	input := "nothing to see here\n"
	res, err := Rewrite(input, set, Options{Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, input, res.Output, "non-matching text must round-trip byte-exactly")
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.Mappings)
}

func TestRewriteDeterministicUnderSeed(t *testing.T) {
	set := mustCompile(t, rule.Definition{
		Name:        "scramble",
		Pattern:     rule.ClassPattern("identifier"),
		Replacement: rule.CharmapReplacement(),
	})

	input := "token_a token_b token_a"
	first, err := Rewrite(input, set, Options{Seed: 42})
	require.NoError(t, err)
	second, err := Rewrite(input, set, Options{Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, first.Output, second.Output)
	assert.Equal(t, first.Mappings, second.Mappings)

	other, err := Rewrite(input, set, Options{Seed: 43})
	require.NoError(t, err)
	assert.NotEqual(t, first.Output, other.Output, "a different seed should pick different substitutions")
}

func TestRewriteFirstMatchWins(t *testing.T) {
	set := mustCompile(t,
		rule.Definition{
			Name:        "specific",
			Pattern:     rule.LiteralPattern("42"),
			Replacement: rule.TemplateReplacement("ANSWER"),
			Priority:    10,
		},
		rule.Definition{
			Name:        "numbers",
			Pattern:     rule.ClassPattern("number"),
			Replacement: rule.CounterReplacement("N-%d"),
		},
	)

	res, err := Rewrite("42 7 42", set, Options{Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, "ANSWER N-1 ANSWER", res.Output,
		"the higher-priority rule must claim the segment before the general one")
}

func TestRewriteDeclarationOrderBreaksTies(t *testing.T) {
	set := mustCompile(t,
		rule.Definition{
			Name:        "first",
			Pattern:     rule.ClassPattern("number"),
			Replacement: rule.TemplateReplacement("FIRST"),
		},
		rule.Definition{
			Name:        "second",
			Pattern:     rule.ClassPattern("number"),
			Replacement: rule.TemplateReplacement("SECOND"),
		},
	)

	res, err := Rewrite("42", set, Options{Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, "FIRST", res.Output)
}

func TestRewriteLineScopedCounterResets(t *testing.T) {
	set := mustCompile(t, rule.Definition{
		Name:        "ids",
		Pattern:     rule.ClassPattern("number"),
		Replacement: rule.CounterReplacement("ID-%d"),
		Scope:       rule.ScopeLine,
	})

	res, err := Rewrite("1 2\n3 4", set, Options{Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, "ID-1 ID-2\nID-1 ID-2", res.Output)
}

func TestRewriteGlobalCounterSurvivesLines(t *testing.T) {
	set := mustCompile(t, rule.Definition{
		Name:        "ids",
		Pattern:     rule.ClassPattern("number"),
		Replacement: rule.CounterReplacement("ID-%d"),
		Scope:       rule.ScopeGlobal,
	})

	res, err := Rewrite("1 2\n3 4", set, Options{Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, "ID-1 ID-2\nID-3 ID-4", res.Output)
}

func TestRewritePoolExhaustionWarns(t *testing.T) {
	set := mustCompile(t, rule.Definition{
		Name:          "names",
		Pattern:       rule.ClassPattern("word"),
		Replacement:   rule.PoolReplacement([]string{"bob"}, true),
		CaseSensitive: true,
	})

	res, err := Rewrite("alice eve\nmallory", set, Options{Seed: 1})
	require.NoError(t, err, "generator failures must never fail the run")

	require.Len(t, res.Warnings, 2)
	assert.Equal(t, "names", res.Warnings[0].Rule)
	assert.Contains(t, res.Warnings[0].Reason, "pool exhausted")
	assert.Equal(t, 1, res.Warnings[0].Line)
	assert.Equal(t, 2, res.Warnings[1].Line)

	// Exactly one word got the pooled value; the other two passed through.
	assert.Equal(t, "bob eve\nmallory", res.Output)
	assert.Len(t, res.Mappings, 1)
}

func TestRewriteSeededMappingsReused(t *testing.T) {
	set := mustCompile(t, rule.Definition{
		Name:        "ids",
		Pattern:     rule.ClassPattern("number"),
		Replacement: rule.CounterReplacement("ID-%d"),
	})

	res, err := Rewrite("42 43", set, Options{
		Seed:     1,
		Mappings: []Mapping{{Rule: "ids", Original: "42", Replacement: "ID-9"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ID-9 ID-1", res.Output,
		"a preloaded mapping wins over the run's own generator")
}

func TestRewriteHeader(t *testing.T) {
	set := mustCompile(t, rule.Definition{
		Name:        "ids",
		Pattern:     rule.ClassPattern("number"),
		Replacement: rule.CounterReplacement("ID-%d"),
	})

	t.Run("lf", func(t *testing.T) {
		res, err := Rewrite("a 1\nb 2", set, Options{Seed: 1, Header: "# rewritten"})
		require.NoError(t, err)
		assert.Equal(t, "# rewritten\na ID-1\nb ID-2", res.Output)
	})

	t.Run("crlf", func(t *testing.T) {
		res, err := Rewrite("a 1\r\nb 2", set, Options{Seed: 1, Header: "# rewritten"})
		require.NoError(t, err)
		assert.Equal(t, "# rewritten\r\na ID-1\r\nb ID-2", res.Output,
			"the header must follow the input's own linebreak convention")
	})

	t.Run("no_breaks", func(t *testing.T) {
		res, err := Rewrite("a 1", set, Options{Seed: 1, Header: "# rewritten"})
		require.NoError(t, err)
		assert.Equal(t, "# rewritten\na ID-1", res.Output)
	})
}

func TestRewriteEmptyInput(t *testing.T) {
	set := mustCompile(t, rule.Definition{
		Name:        "ids",
		Pattern:     rule.ClassPattern("number"),
		Replacement: rule.CounterReplacement("ID-%d"),
	})

	res, err := Rewrite("", set, Options{Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, "", res.Output)
}

func TestRewritePreservesWhitespaceExactly(t *testing.T) {
	set := mustCompile(t, rule.Definition{
		Name:        "ids",
		Pattern:     rule.ClassPattern("number"),
		Replacement: rule.CounterReplacement("ID-%d"),
	})

	input := "  1\t\t2   \n\n  3"
	res, err := Rewrite(input, set, Options{Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, "  ID-1\t\tID-2   \n\n  ID-3", res.Output)
}

func TestRewriteRejectsSeededLinebreakMapping(t *testing.T) {
	set := mustCompile(t, rule.Definition{
		Name:        "ids",
		Pattern:     rule.ClassPattern("number"),
		Replacement: rule.CounterReplacement("ID-%d"),
	})

	_, err := Rewrite("id: 42", set, Options{
		Seed:     1,
		Mappings: []Mapping{{Rule: "ids", Original: "42", Replacement: "X\nY"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "structural invariant")
}
