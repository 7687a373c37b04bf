// Package interpolate replaces {{key}} placeholders with environment values.
package interpolate

import (
	"regexp"
	"strings"

	"github.com/mblydenburgh/postie/internal/core"
)

// placeholderPattern finds leftover {{name}} tokens. It is used for
// diagnostics only; substitution itself is literal.
var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Substitute replaces every literal {{key}} in raw with its value, walking
// env.Values in list order so later values see the output of earlier ones.
// Disabled values substitute too. Replacement is not recursive: a value that
// itself contains a placeholder is inserted verbatim and left alone unless a
// later key matches it. An environment without values returns raw unchanged.
func Substitute(env core.EnvironmentFile, raw string) string {
	if env.Values == nil {
		return raw
	}

	out := raw
	for _, v := range env.Values {
		out = strings.ReplaceAll(out, "{{"+v.Key+"}}", v.Value)
	}
	return out
}

// Placeholders returns the names of unresolved {{name}} tokens in s, in
// order of first appearance.
func Placeholders(s string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		names = append(names, m[1])
	}
	return names
}
