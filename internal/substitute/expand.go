package substitute

import (
	"fmt"
	"strings"

	"github.com/kiro-labs/steerkit/internal/build"
)

// MaxPasses bounds the number of expansion passes.
const MaxPasses = 10

// Expand replaces every token of rules found in text with the rule's value,
// repeating until a pass replaces nothing or MaxPasses is reached. Tokens
// that match no rule are left untouched.
//
// Hitting the pass limit is not an error: the text is returned as it stands
// together with a warning naming the keys still present.
func Expand(text string, rules *RuleSet, ctx build.Context) (string, []string) {
	keys := rules.Keys()
	if len(keys) == 0 {
		return text, nil
	}

	for pass := 0; pass < MaxPasses; pass++ {
		replaced := false
		for _, key := range keys {
			tok := Token(key)
			if !strings.Contains(text, tok) {
				continue
			}
			rule := rules.rules[key]
			text = strings.ReplaceAll(text, tok, rule.Value(ctx))
			replaced = true
		}
		if !replaced {
			return text, nil
		}
	}

	remaining := Unresolved(text, rules)
	if len(remaining) == 0 {
		return text, nil
	}
	return text, []string{fmt.Sprintf(
		"placeholders left after %d passes, possible circular reference: %s",
		MaxPasses, strings.Join(remaining, ", "),
	)}
}

// Unresolved returns the keys of rules whose token still occurs in text, in
// sorted order.
func Unresolved(text string, rules *RuleSet) []string {
	var out []string
	for _, key := range rules.Keys() {
		if strings.Contains(text, Token(key)) {
			out = append(out, key)
		}
	}
	return out
}

// Tokens returns the distinct keys of every {{{...}}} token in text, known
// or not, in order of first appearance.
func Tokens(text string) []string {
	var keys []string
	seen := make(map[string]bool)
	for {
		start := strings.Index(text, TokenOpen)
		if start < 0 {
			return keys
		}
		rest := text[start+len(TokenOpen):]
		end := strings.Index(rest, TokenClose)
		if end < 0 {
			return keys
		}
		key := rest[:end]
		if key != "" && !strings.ContainsAny(key, " \t\n{}") && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
		text = rest[end+len(TokenClose):]
	}
}
