// Package ruleio parses YAML rule files into rule definitions. The
// engine itself never touches YAML; it consumes the parsed records this
// package produces.
package ruleio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Geeks-Trident-LLC/rewordapp/internal/rule"
)

type ruleFile struct {
	Rules []rawRule `yaml:"rules"`
}

type rawRule struct {
	Name          string         `yaml:"name"`
	Pattern       rawPattern     `yaml:"pattern"`
	Replacement   rawReplacement `yaml:"replacement"`
	Priority      int            `yaml:"priority"`
	Scope         string         `yaml:"scope"`
	CaseSensitive *bool          `yaml:"case_sensitive"`
}

type rawPattern struct {
	Literal string `yaml:"literal"`
	Class   string `yaml:"class"`
	Expr    string `yaml:"expr"`
}

type rawReplacement struct {
	Template string   `yaml:"template"`
	Pool     []string `yaml:"pool"`
	Unique   bool     `yaml:"unique"`
	Counter  string   `yaml:"counter"`
	Charmap  bool     `yaml:"charmap"`
}

// Load reads and parses a rule file from disk.
func Load(path string) ([]rule.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return defs, nil
}

// Parse decodes YAML rule data into definitions. Unknown fields are
// rejected so a typo in a rule file surfaces instead of silently
// disabling a rule.
func Parse(data []byte) ([]rule.Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file ruleFile
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("rules document is empty")
		}
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("rules document defines no rules")
	}

	defs := make([]rule.Definition, 0, len(file.Rules))
	for i, raw := range file.Rules {
		def, err := convert(raw)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%q): %w", i+1, raw.Name, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func convert(raw rawRule) (rule.Definition, error) {
	pattern, err := convertPattern(raw.Pattern)
	if err != nil {
		return rule.Definition{}, err
	}

	replacement, err := convertReplacement(raw.Replacement)
	if err != nil {
		return rule.Definition{}, err
	}

	scope, err := parseScope(raw.Scope)
	if err != nil {
		return rule.Definition{}, err
	}

	caseSensitive := true
	if raw.CaseSensitive != nil {
		caseSensitive = *raw.CaseSensitive
	}

	return rule.Definition{
		Name:          raw.Name,
		Pattern:       pattern,
		Replacement:   replacement,
		Priority:      raw.Priority,
		Scope:         scope,
		CaseSensitive: caseSensitive,
	}, nil
}

func convertPattern(raw rawPattern) (rule.PatternSpec, error) {
	set := 0
	for _, v := range []string{raw.Literal, raw.Class, raw.Expr} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return rule.PatternSpec{}, fmt.Errorf("pattern must set exactly one of literal, class or expr")
	}

	switch {
	case raw.Literal != "":
		return rule.LiteralPattern(raw.Literal), nil
	case raw.Class != "":
		return rule.ClassPattern(raw.Class), nil
	default:
		return rule.ExprPattern(raw.Expr), nil
	}
}

func convertReplacement(raw rawReplacement) (rule.ReplacementSpec, error) {
	set := 0
	if raw.Template != "" {
		set++
	}
	if len(raw.Pool) > 0 {
		set++
	}
	if raw.Counter != "" {
		set++
	}
	if raw.Charmap {
		set++
	}
	if set != 1 {
		return rule.ReplacementSpec{}, fmt.Errorf("replacement must set exactly one of template, pool, counter or charmap")
	}

	switch {
	case raw.Template != "":
		return rule.TemplateReplacement(raw.Template), nil
	case len(raw.Pool) > 0:
		return rule.PoolReplacement(raw.Pool, raw.Unique), nil
	case raw.Counter != "":
		return rule.CounterReplacement(raw.Counter), nil
	default:
		return rule.CharmapReplacement(), nil
	}
}

func parseScope(s string) (rule.Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "global":
		return rule.ScopeGlobal, nil
	case "line":
		return rule.ScopeLine, nil
	default:
		return rule.ScopeGlobal, fmt.Errorf("invalid scope %q (must be global or line)", s)
	}
}
