package rule

// Scope controls how long a rule's internal counter state lives.
type Scope int

const (
	// ScopeGlobal keeps counter state for the whole rewriting run.
	ScopeGlobal Scope = iota
	// ScopeLine resets counter state at every line break.
	ScopeLine
)

// String returns the lowercase name of the scope.
func (s Scope) String() string {
	if s == ScopeLine {
		return "line"
	}
	return "global"
}

// PatternKind tags the variant carried by a PatternSpec.
type PatternKind int

const (
	// PatternLiteral matches the whole segment text verbatim.
	PatternLiteral PatternKind = iota
	// PatternClass matches a named pattern class such as "number" or "ipv4".
	PatternClass
	// PatternExpr matches a regular expression against the whole segment.
	PatternExpr
)

// PatternSpec is a tagged variant describing how a rule matches.
type PatternSpec struct {
	Kind  PatternKind
	Value string
}

// LiteralPattern builds a PatternSpec that matches text exactly.
func LiteralPattern(text string) PatternSpec {
	return PatternSpec{Kind: PatternLiteral, Value: text}
}

// ClassPattern builds a PatternSpec referencing a named pattern class.
func ClassPattern(name string) PatternSpec {
	return PatternSpec{Kind: PatternClass, Value: name}
}

// ExprPattern builds a PatternSpec from a regular expression.
func ExprPattern(expr string) PatternSpec {
	return PatternSpec{Kind: PatternExpr, Value: expr}
}

// ReplacementKind tags the variant carried by a ReplacementSpec.
type ReplacementKind int

const (
	// ReplaceTemplate substitutes a fixed template with placeholders.
	ReplaceTemplate ReplacementKind = iota
	// ReplacePool picks a candidate from a pool pseudo-randomly.
	ReplacePool
	// ReplaceCounter emits an incrementing placeholder such as "ITEM-1".
	ReplaceCounter
	// ReplaceCharmap rewrites characters through a shuffled one-to-one
	// substitution map that preserves case and digit classes.
	ReplaceCharmap
)

// ReplacementSpec is a tagged variant describing how a rule generates
// replacement text.
type ReplacementSpec struct {
	Kind     ReplacementKind
	Template string   // ReplaceTemplate
	Pool     []string // ReplacePool
	Unique   bool     // ReplacePool: each candidate usable at most once
	Format   string   // ReplaceCounter, must contain exactly one %d verb
}

// TemplateReplacement builds a template-based ReplacementSpec.
func TemplateReplacement(template string) ReplacementSpec {
	return ReplacementSpec{Kind: ReplaceTemplate, Template: template}
}

// PoolReplacement builds a pool-based ReplacementSpec. When unique is
// set, each candidate is handed out at most once per run and an
// exhausted pool degrades to a runtime warning.
func PoolReplacement(pool []string, unique bool) ReplacementSpec {
	return ReplacementSpec{Kind: ReplacePool, Pool: pool, Unique: unique}
}

// CounterReplacement builds a counter-based ReplacementSpec.
func CounterReplacement(format string) ReplacementSpec {
	return ReplacementSpec{Kind: ReplaceCounter, Format: format}
}

// CharmapReplacement builds a character-substitution ReplacementSpec.
func CharmapReplacement() ReplacementSpec {
	return ReplacementSpec{Kind: ReplaceCharmap}
}

// Definition is the declarative form of a rewrite rule, loaded once per
// run from external rule data and immutable after compilation.
type Definition struct {
	Name          string
	Pattern       PatternSpec
	Replacement   ReplacementSpec
	Priority      int
	Scope         Scope
	CaseSensitive bool
}
