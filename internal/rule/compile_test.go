package rule

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name        string
		defs        []Definition
		errContains string
		errRule     string
	}{
		{
			name: "missing_name",
			defs: []Definition{{
				Pattern:     LiteralPattern("x"),
				Replacement: TemplateReplacement("{value}"),
			}},
			errContains: "missing rule name",
			errRule:     "#1",
		},
		{
			name: "duplicate_name",
			defs: []Definition{
				{Name: "dup", Pattern: LiteralPattern("a"), Replacement: CharmapReplacement()},
				{Name: "dup", Pattern: LiteralPattern("b"), Replacement: CharmapReplacement()},
			},
			errContains: "duplicate rule name",
			errRule:     "dup",
		},
		{
			name: "bad_expression",
			defs: []Definition{{
				Name:        "broken",
				Pattern:     ExprPattern("(unclosed"),
				Replacement: CharmapReplacement(),
			}},
			errContains: "invalid pattern expression",
			errRule:     "broken",
		},
		{
			name: "unknown_class",
			defs: []Definition{{
				Name:        "mystery",
				Pattern:     ClassPattern("telepathy"),
				Replacement: CharmapReplacement(),
			}},
			errContains: "unknown pattern class",
			errRule:     "mystery",
		},
		{
			name: "unknown_placeholder",
			defs: []Definition{{
				Name:        "tmpl",
				Pattern:     LiteralPattern("x"),
				Replacement: TemplateReplacement("masked-{nope}"),
			}},
			errContains: "unknown template placeholder",
			errRule:     "tmpl",
		},
		{
			name: "empty_pool",
			defs: []Definition{{
				Name:        "pool",
				Pattern:     LiteralPattern("x"),
				Replacement: PoolReplacement(nil, false),
			}},
			errContains: "empty replacement pool",
			errRule:     "pool",
		},
		{
			name: "counter_without_verb",
			defs: []Definition{{
				Name:        "cnt",
				Pattern:     LiteralPattern("x"),
				Replacement: CounterReplacement("ITEM"),
			}},
			errContains: "must contain exactly one %d",
			errRule:     "cnt",
		},
		{
			name: "template_with_linebreak",
			defs: []Definition{{
				Name:        "multi",
				Pattern:     LiteralPattern("x"),
				Replacement: TemplateReplacement("first\nsecond"),
			}},
			errContains: "must not contain line breaks",
			errRule:     "multi",
		},
		{
			name: "pool_candidate_with_linebreak",
			defs: []Definition{{
				Name:        "pool-break",
				Pattern:     LiteralPattern("x"),
				Replacement: PoolReplacement([]string{"ok", "bad\r\nvalue"}, false),
			}},
			errContains: "must not contain line breaks",
			errRule:     "pool-break",
		},
		{
			name: "counter_with_linebreak",
			defs: []Definition{{
				Name:        "cnt-break",
				Pattern:     LiteralPattern("x"),
				Replacement: CounterReplacement("ID\n%d"),
			}},
			errContains: "must not contain line breaks",
			errRule:     "cnt-break",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Compile(tt.defs)
			require.Error(t, err)
			assert.Nil(t, set, "no set may be produced on compile failure")

			var cerr *CompilationError
			require.True(t, errors.As(err, &cerr), "error must be a *CompilationError")
			assert.Equal(t, tt.errRule, cerr.Rule, "error must name the offending rule")
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestCompileAllOrNothing(t *testing.T) {
	defs := []Definition{
		{Name: "good", Pattern: ClassPattern("number"), Replacement: CounterReplacement("N-%d")},
		{Name: "bad", Pattern: ExprPattern("["), Replacement: CharmapReplacement()},
	}
	set, err := Compile(defs)
	require.Error(t, err)
	assert.Nil(t, set)
}

func TestCompileOrdering(t *testing.T) {
	defs := []Definition{
		{Name: "low", Pattern: LiteralPattern("x"), Replacement: CharmapReplacement(), Priority: 0},
		{Name: "high", Pattern: LiteralPattern("x"), Replacement: CharmapReplacement(), Priority: 10},
		{Name: "tie-first", Pattern: LiteralPattern("x"), Replacement: CharmapReplacement(), Priority: 5},
		{Name: "tie-second", Pattern: LiteralPattern("x"), Replacement: CharmapReplacement(), Priority: 5},
	}

	set, err := Compile(defs)
	require.NoError(t, err)

	var order []string
	for _, r := range set.Rules() {
		order = append(order, r.Name)
	}
	assert.Equal(t, []string{"high", "tie-first", "tie-second", "low"}, order,
		"rules must be ordered by priority desc then declaration order")
}

func TestLiteralMatcherCaseSensitivity(t *testing.T) {
	sensitive, err := Compile([]Definition{{
		Name: "s", Pattern: LiteralPattern("Secret"), Replacement: CharmapReplacement(), CaseSensitive: true,
	}})
	require.NoError(t, err)
	assert.True(t, sensitive.Rules()[0].Match("Secret"))
	assert.False(t, sensitive.Rules()[0].Match("secret"))

	insensitive, err := Compile([]Definition{{
		Name: "i", Pattern: LiteralPattern("Secret"), Replacement: CharmapReplacement(), CaseSensitive: false,
	}})
	require.NoError(t, err)
	assert.True(t, insensitive.Rules()[0].Match("SECRET"))
}

func TestExprMatcherIsAnchored(t *testing.T) {
	set, err := Compile([]Definition{{
		Name: "digits", Pattern: ExprPattern(`\d+`), Replacement: CharmapReplacement(), CaseSensitive: true,
	}})
	require.NoError(t, err)

	r := set.Rules()[0]
	assert.True(t, r.Match("12345"))
	assert.False(t, r.Match("order-12345"), "an expression must never match a substring of a segment")
}

func TestPatternClasses(t *testing.T) {
	tests := []struct {
		class  string
		accept []string
		reject []string
	}{
		{"word", []string{"alice", "Wörld"}, []string{"abc123", "42", ""}},
		{"number", []string{"42", "3.14"}, []string{"1.2.3", "abc", "4two"}},
		{"identifier", []string{"svc_account", "abc123", "_x"}, []string{"1abc", "a-b"}},
		{"email", []string{"a@b.com", "first.last+tag@mail.example.org"}, []string{"a@b", "plain"}},
		{"ipv4", []string{"192.168.1.1", "10.0.0.254"}, []string{"300.1.1.1", "1.2.3", "::1"}},
		{"ipv6", []string{"fe80:0:0:0:0:0:0:1", "2001:db8:0:0:0:0:0:1"}, []string{"192.168.1.1", "nope"}},
		{"ip", []string{"192.168.1.1", "2001:db8:0:0:0:0:0:1"}, []string{"not-an-ip"}},
		{"mac", []string{"aa:bb:cc:dd:ee:ff", "00-14-22-01-23-45"}, []string{"aa:bb:cc", "zz:bb:cc:dd:ee:ff"}},
		{"uuid", []string{"6ba7b810-9dad-11d1-80b4-00c04fd430c8"}, []string{"6ba7b810"}},
		{"hex", []string{"deadBEEF", "0x1f"}, []string{"0xzz", "hello"}},
		{"hostname", []string{"db-primary.internal.example.com"}, []string{"localhost", "-bad.example"}},
		{"url", []string{"https://example.com/path", "http://10.0.0.1:8080/x"}, []string{"example.com/path", "https://", "hello"}},
		{"datetime", []string{"2024-01-15", "12:34:56", "2024-01-15T12:34:56Z", "01/15/2024"}, []string{"42", "1.2.3", "abc"}},
		{"fperm", []string{"rwxr-xr-x", "rw-r--r--", "drwxr-xr-x"}, []string{"rwx", "hello-world", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			pred, _, ok := lookupClass(tt.class)
			require.True(t, ok, "class %s must exist", tt.class)
			for _, s := range tt.accept {
				assert.True(t, pred(s), "%s should accept %q", tt.class, s)
			}
			for _, s := range tt.reject {
				assert.False(t, pred(s), "%s should reject %q", tt.class, s)
			}
		})
	}
}

func TestClassAliases(t *testing.T) {
	for alias, canonical := range map[string]string{
		"email-like": "email",
		"ip-like":    "ip",
		"domain":     "hostname",
		"url-like":   "url",
		"date":       "datetime",
		"time":       "datetime",
		"perm":       "fperm",
	} {
		_, got, ok := lookupClass(alias)
		require.True(t, ok, "alias %s must resolve", alias)
		assert.Equal(t, canonical, got)
	}
}

func TestDescribe(t *testing.T) {
	set, err := Compile([]Definition{
		{Name: "ids", Pattern: ClassPattern("number"), Replacement: CounterReplacement("ID-%d"), Priority: 1, Scope: ScopeLine},
		{Name: "names", Pattern: LiteralPattern("alice"), Replacement: PoolReplacement([]string{"bob", "carol"}, true)},
	})
	require.NoError(t, err)

	lines := Describe(set)
	require.Len(t, lines, 2)
	assert.Equal(t, `1. ids [priority 1, line] class number -> counter "ID-%d"`, lines[0])
	assert.Equal(t, `2. names [priority 0, global] literal "alice" -> unique pool of 2`, lines[1])
}
