// Package modes decides which (language, mode, submode) combinations carry a
// daily leaderboard.
package modes

import (
	"fmt"
	"sort"
	"strings"
)

// Kind tags the variant held by a Pattern.
type Kind uint8

const (
	// KindAny matches every value.
	KindAny Kind = iota
	// KindExact matches one literal value.
	KindExact
	// KindOneOf matches any member of a fixed set.
	KindOneOf
)

// Pattern matches a single field of a mode triple.
type Pattern struct {
	kind  Kind
	exact string
	set   map[string]struct{}
}

// Any returns a pattern matching every value.
func Any() Pattern { return Pattern{kind: KindAny} }

// Exact returns a pattern matching only v.
func Exact(v string) Pattern { return Pattern{kind: KindExact, exact: v} }

// OneOf returns a pattern matching any of values.
func OneOf(values ...string) Pattern {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return Pattern{kind: KindOneOf, set: set}
}

// Kind reports the variant of p.
func (p Pattern) Kind() Kind { return p.kind }

// Match reports whether v satisfies p.
func (p Pattern) Match(v string) bool {
	switch p.kind {
	case KindAny:
		return true
	case KindExact:
		return p.exact == v
	case KindOneOf:
		_, ok := p.set[v]
		return ok
	}
	return false
}

func (p Pattern) String() string {
	switch p.kind {
	case KindAny:
		return "*"
	case KindExact:
		return p.exact
	case KindOneOf:
		values := make([]string, 0, len(p.set))
		for v := range p.set {
			values = append(values, v)
		}
		sort.Strings(values)
		return "(" + strings.Join(values, "|") + ")"
	}
	return "?"
}

// ParsePattern reads the configuration notation for a pattern:
//
//	""  "*"  ".*"        any value
//	"a|b"  "(a|b)"       one of the listed values
//	anything else        the literal value
func ParsePattern(s string) (Pattern, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "*", ".*":
		return Any(), nil
	}
	body := s
	if strings.HasPrefix(body, "(") && strings.HasSuffix(body, ")") {
		body = body[1 : len(body)-1]
	}
	if !strings.Contains(body, "|") {
		if body == "" {
			return Pattern{}, fmt.Errorf("%w: %q", ErrInvalidPattern, s)
		}
		return Exact(body), nil
	}
	parts := strings.Split(body, "|")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return Pattern{}, fmt.Errorf("%w: empty alternative in %q", ErrInvalidPattern, s)
		}
		parts[i] = part
	}
	return OneOf(parts...), nil
}

// RuleConfig is the configuration shape of a rule; each field uses the
// ParsePattern notation.
type RuleConfig struct {
	Language string `koanf:"language" json:"language"`
	Mode     string `koanf:"mode" json:"mode"`
	Submode  string `koanf:"submode" json:"submode"`
}

// Rule matches a mode triple field by field.
type Rule struct {
	Language Pattern
	Mode     Pattern
	Submode  Pattern
}

// ParseRule converts a configured rule into a Rule.
func ParseRule(rc RuleConfig) (Rule, error) {
	lang, err := ParsePattern(rc.Language)
	if err != nil {
		return Rule{}, fmt.Errorf("language: %w", err)
	}
	mode, err := ParsePattern(rc.Mode)
	if err != nil {
		return Rule{}, fmt.Errorf("mode: %w", err)
	}
	sub, err := ParsePattern(rc.Submode)
	if err != nil {
		return Rule{}, fmt.Errorf("submode: %w", err)
	}
	return Rule{Language: lang, Mode: mode, Submode: sub}, nil
}

// ParseRules converts every configured rule, failing on the first bad one.
func ParseRules(rcs []RuleConfig) ([]Rule, error) {
	rules := make([]Rule, 0, len(rcs))
	for i, rc := range rcs {
		r, err := ParseRule(rc)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Matches reports whether all three fields satisfy the rule.
func (r Rule) Matches(language, mode, submode string) bool {
	return r.Language.Match(language) && r.Mode.Match(mode) && r.Submode.Match(submode)
}

// IsValid reports whether at least one rule matches the triple.
func IsValid(language, mode, submode string, rules []Rule) bool {
	for _, r := range rules {
		if r.Matches(language, mode, submode) {
			return true
		}
	}
	return false
}

// Matcher is an immutable set of rules.
type Matcher struct {
	rules []Rule
}

// NewMatcher parses the configured rules into a Matcher.
func NewMatcher(rcs []RuleConfig) (*Matcher, error) {
	rules, err := ParseRules(rcs)
	if err != nil {
		return nil, err
	}
	return &Matcher{rules: rules}, nil
}

// IsValid reports whether the triple has a daily leaderboard.
func (m *Matcher) IsValid(language, mode, submode string) bool {
	if m == nil {
		return false
	}
	return IsValid(language, mode, submode, m.rules)
}

// Len returns the number of rules.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}
