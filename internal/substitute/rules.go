package substitute

import (
	"sort"

	"github.com/kiro-labs/steerkit/internal/build"
)

// Token delimiters.
const (
	TokenOpen  = "{{{"
	TokenClose = "}}}"
)

// ValueFunc computes a replacement value from the build context.
type ValueFunc func(build.Context) string

// Rule pairs a placeholder key with the function producing its value.
type Rule struct {
	Key   string
	Value ValueFunc
}

// Token returns the delimited token for key, e.g. Token("VERSION") → "{{{VERSION}}}".
func Token(key string) string {
	return TokenOpen + key + TokenClose
}

// Literal returns a rule that always yields value.
func Literal(key, value string) Rule {
	return Rule{Key: key, Value: func(build.Context) string { return value }}
}

// RuleSet is a named collection of rules keyed by placeholder key. Adding a
// rule with an existing key replaces it.
type RuleSet struct {
	Name  string
	rules map[string]Rule
}

// NewRuleSet creates a rule set containing rules.
func NewRuleSet(name string, rules ...Rule) *RuleSet {
	s := &RuleSet{Name: name, rules: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		s.Add(r)
	}
	return s
}

// Add inserts or replaces a rule. Rules with an empty key or nil value are
// ignored.
func (s *RuleSet) Add(r Rule) {
	if r.Key == "" || r.Value == nil {
		return
	}
	if s.rules == nil {
		s.rules = make(map[string]Rule)
	}
	s.rules[r.Key] = r
}

// Merge returns a new set holding the rules of s overlaid by other.
func (s *RuleSet) Merge(name string, other *RuleSet) *RuleSet {
	out := NewRuleSet(name)
	if s != nil {
		for _, r := range s.rules {
			out.Add(r)
		}
	}
	if other != nil {
		for _, r := range other.rules {
			out.Add(r)
		}
	}
	return out
}

// Lookup returns the rule for key.
func (s *RuleSet) Lookup(key string) (Rule, bool) {
	if s == nil {
		return Rule{}, false
	}
	r, ok := s.rules[key]
	return r, ok
}

// Len returns the number of rules.
func (s *RuleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Keys returns the rule keys in sorted order.
func (s *RuleSet) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.rules))
	for k := range s.rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
