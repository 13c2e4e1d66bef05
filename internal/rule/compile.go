// Package rule holds the declarative rewrite rule model and the
// compiler that turns definitions into executable matchers and
// replacement generators.
package rule

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// templatePlaceholders are the placeholders a template replacement may
// reference. Anything else fails compilation.
var templatePlaceholders = map[string]func(original, rule string) string{
	"value": func(original, _ string) string { return original },
	"rule":  func(_, rule string) string { return rule },
	"len":   func(original, _ string) string { return strconv.Itoa(len(original)) },
	"hash": func(original, _ string) string {
		h := fnv.New32a()
		h.Write([]byte(original))
		return fmt.Sprintf("%08x", h.Sum32())
	},
}

var placeholderRe = regexp.MustCompile(`\{([a-z]+)\}`)

// ErrPoolExhausted is returned by a unique pool generator once every
// candidate has been handed out.
var ErrPoolExhausted = errors.New("replacement pool exhausted")

// matcher is the executable form of a PatternSpec. Closed set of
// variants; Compile rejects anything else.
type matcher interface {
	match(text string) bool
}

type literalMatcher struct {
	value string
	fold  bool
}

func (m literalMatcher) match(text string) bool {
	if m.fold {
		return strings.EqualFold(text, m.value)
	}
	return text == m.value
}

type classMatcher struct {
	pred func(string) bool
}

func (m classMatcher) match(text string) bool { return m.pred(text) }

type exprMatcher struct {
	re *regexp.Regexp
}

func (m exprMatcher) match(text string) bool { return m.re.MatchString(text) }

// Generator produces replacement text for one rule within one run. A
// generator owns its mutable state (counters, pool bookkeeping, char
// tables); the engine creates a fresh generator per rule per run.
type Generator interface {
	// Generate returns the replacement for the original text, or an
	// error that the engine degrades to a pass-through warning.
	Generate(original string) (string, error)
	// ResetLine clears LINE-scoped state at a line break. Generators of
	// GLOBAL-scoped rules treat it as a no-op.
	ResetLine()
}

type templateGenerator struct {
	rule     string
	template string
}

func (g *templateGenerator) Generate(original string) (string, error) {
	out := placeholderRe.ReplaceAllStringFunc(g.template, func(m string) string {
		name := m[1 : len(m)-1]
		return templatePlaceholders[name](original, g.rule)
	})
	return out, nil
}

func (g *templateGenerator) ResetLine() {}

type poolGenerator struct {
	rnd       *rand.Rand
	pool      []string
	unique    bool
	remaining []string
}

func (g *poolGenerator) Generate(string) (string, error) {
	if !g.unique {
		return g.pool[g.rnd.Intn(len(g.pool))], nil
	}
	if len(g.remaining) == 0 {
		return "", ErrPoolExhausted
	}
	i := g.rnd.Intn(len(g.remaining))
	picked := g.remaining[i]
	g.remaining = append(g.remaining[:i], g.remaining[i+1:]...)
	return picked, nil
}

func (g *poolGenerator) ResetLine() {}

type counterGenerator struct {
	format  string
	scope   Scope
	current int
}

func (g *counterGenerator) Generate(string) (string, error) {
	g.current++
	return fmt.Sprintf(g.format, g.current), nil
}

func (g *counterGenerator) ResetLine() {
	if g.scope == ScopeLine {
		g.current = 0
	}
}

type charmapGenerator struct {
	table charTable
}

func (g *charmapGenerator) Generate(original string) (string, error) {
	return g.table.apply(original), nil
}

func (g *charmapGenerator) ResetLine() {}

// CompiledRule is the runtime form of a Definition with a prebuilt
// matcher. Matching never recompiles patterns, which matters because
// the rewriter evaluates the full rule set against every matchable
// segment.
type CompiledRule struct {
	Definition
	order   int
	matcher matcher
}

// Match reports whether the rule accepts the full segment text.
func (r *CompiledRule) Match(text string) bool {
	return r.matcher.match(text)
}

// NewGenerator builds a fresh, run-scoped replacement generator drawing
// randomness from the supplied source.
func (r *CompiledRule) NewGenerator(rnd *rand.Rand) Generator {
	switch r.Replacement.Kind {
	case ReplacePool:
		g := &poolGenerator{rnd: rnd, pool: r.Replacement.Pool, unique: r.Replacement.Unique}
		if g.unique {
			g.remaining = append([]string(nil), g.pool...)
		}
		return g
	case ReplaceCounter:
		return &counterGenerator{format: r.Replacement.Format, scope: r.Scope}
	case ReplaceCharmap:
		return &charmapGenerator{table: newCharTable(rnd)}
	default:
		return &templateGenerator{rule: r.Name, template: r.Replacement.Template}
	}
}

// Set is an ordered, immutable sequence of compiled rules, evaluated
// front to back with first-match-wins semantics.
type Set struct {
	rules []*CompiledRule
}

// Rules returns the compiled rules in evaluation order.
func (s *Set) Rules() []*CompiledRule {
	return s.rules
}

// Len returns the number of rules in the set.
func (s *Set) Len() int {
	return len(s.rules)
}

// Compile turns definitions into a Set. It is all-or-nothing: the first
// invalid definition aborts compilation with a *CompilationError naming
// the rule, and no partially valid set is ever produced.
func Compile(defs []Definition) (*Set, error) {
	rules := make([]*CompiledRule, 0, len(defs))
	seen := make(map[string]bool, len(defs))

	for i, def := range defs {
		if def.Name == "" {
			return nil, compileErr(fmt.Sprintf("#%d", i+1), "missing rule name", nil)
		}
		if seen[def.Name] {
			return nil, compileErr(def.Name, "duplicate rule name", nil)
		}
		seen[def.Name] = true

		m, err := compileMatcher(def)
		if err != nil {
			return nil, err
		}
		if err := validateReplacement(def); err != nil {
			return nil, err
		}

		rules = append(rules, &CompiledRule{Definition: def, order: i, matcher: m})
	}

	// Priority descending, declaration order breaks ties so behavior
	// stays deterministic across runs.
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].order < rules[j].order
	})

	return &Set{rules: rules}, nil
}

func compileMatcher(def Definition) (matcher, error) {
	switch def.Pattern.Kind {
	case PatternLiteral:
		if def.Pattern.Value == "" {
			return nil, compileErr(def.Name, "empty literal pattern", nil)
		}
		return literalMatcher{value: def.Pattern.Value, fold: !def.CaseSensitive}, nil

	case PatternClass:
		pred, _, ok := lookupClass(def.Pattern.Value)
		if !ok {
			return nil, compileErr(def.Name,
				fmt.Sprintf("unknown pattern class %q (known: %s)",
					def.Pattern.Value, strings.Join(ClassNames(), ", ")), nil)
		}
		return classMatcher{pred: pred}, nil

	case PatternExpr:
		expr := def.Pattern.Value
		if expr == "" {
			return nil, compileErr(def.Name, "empty pattern expression", nil)
		}
		if !def.CaseSensitive {
			expr = "(?i)" + expr
		}
		// Anchor so an expression can never match a substring of a
		// segment and leak the rest of the value.
		re, err := regexp.Compile("^(?:" + expr + ")$")
		if err != nil {
			return nil, compileErr(def.Name, "invalid pattern expression", err)
		}
		return exprMatcher{re: re}, nil

	default:
		return nil, compileErr(def.Name, fmt.Sprintf("unknown pattern kind %d", def.Pattern.Kind), nil)
	}
}

func validateReplacement(def Definition) error {
	switch def.Replacement.Kind {
	case ReplaceTemplate:
		if def.Replacement.Template == "" {
			return compileErr(def.Name, "empty replacement template", nil)
		}
		if strings.ContainsAny(def.Replacement.Template, "\r\n") {
			return compileErr(def.Name, "replacement template must not contain line breaks", nil)
		}
		for _, m := range placeholderRe.FindAllStringSubmatch(def.Replacement.Template, -1) {
			if _, ok := templatePlaceholders[m[1]]; !ok {
				return compileErr(def.Name, fmt.Sprintf("unknown template placeholder {%s}", m[1]), nil)
			}
		}
		return nil

	case ReplacePool:
		if len(def.Replacement.Pool) == 0 {
			return compileErr(def.Name, "empty replacement pool", nil)
		}
		for _, candidate := range def.Replacement.Pool {
			if strings.ContainsAny(candidate, "\r\n") {
				return compileErr(def.Name,
					fmt.Sprintf("pool candidate %q must not contain line breaks", candidate), nil)
			}
		}
		return nil

	case ReplaceCounter:
		if strings.ContainsAny(def.Replacement.Format, "\r\n") {
			return compileErr(def.Name,
				fmt.Sprintf("counter format %q must not contain line breaks", def.Replacement.Format), nil)
		}
		if strings.Count(def.Replacement.Format, "%d") != 1 {
			return compileErr(def.Name,
				fmt.Sprintf("counter format %q must contain exactly one %%d verb", def.Replacement.Format), nil)
		}
		if strings.Count(strings.ReplaceAll(def.Replacement.Format, "%%", ""), "%") != 1 {
			return compileErr(def.Name,
				fmt.Sprintf("counter format %q has stray %% verbs", def.Replacement.Format), nil)
		}
		return nil

	case ReplaceCharmap:
		return nil

	default:
		return compileErr(def.Name, fmt.Sprintf("unknown replacement kind %d", def.Replacement.Kind), nil)
	}
}

// Describe renders one human-readable summary line per rule in
// evaluation order, for "show rules" style displays.
func Describe(set *Set) []string {
	out := make([]string, 0, set.Len())
	for i, r := range set.Rules() {
		out = append(out, fmt.Sprintf("%d. %s [priority %d, %s] %s -> %s",
			i+1, r.Name, r.Priority, r.Scope, describePattern(r.Pattern), describeReplacement(r.Replacement)))
	}
	return out
}

func describePattern(p PatternSpec) string {
	switch p.Kind {
	case PatternLiteral:
		return fmt.Sprintf("literal %q", p.Value)
	case PatternClass:
		_, canonical, _ := lookupClass(p.Value)
		return fmt.Sprintf("class %s", canonical)
	default:
		return fmt.Sprintf("expr %q", p.Value)
	}
}

func describeReplacement(r ReplacementSpec) string {
	switch r.Kind {
	case ReplacePool:
		if r.Unique {
			return fmt.Sprintf("unique pool of %d", len(r.Pool))
		}
		return fmt.Sprintf("pool of %d", len(r.Pool))
	case ReplaceCounter:
		return fmt.Sprintf("counter %q", r.Format)
	case ReplaceCharmap:
		return "charmap"
	default:
		return fmt.Sprintf("template %q", r.Template)
	}
}
