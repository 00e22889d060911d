// Package templating expands <<name>> placeholders against an ordered list
// of variables.
package templating

import "regexp"

// MaxPasses bounds how many times Resolve re-scans its own output.
// Self-referential variables stop expanding after this many passes.
const MaxPasses = 10

var placeholder = regexp.MustCompile(`<<(\w+)>>`)

// Variable is a key/value pair available for placeholder substitution.
type Variable struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Lookup returns the value of the first variable whose key matches.
func Lookup(vars []Variable, key string) (string, bool) {
	for _, v := range vars {
		if v.Key == key {
			return v.Value, true
		}
	}
	return "", false
}

// Resolve replaces every <<key>> in text with the matching variable value.
// Substituted values are scanned again so variables may reference each
// other. Placeholders with no matching variable are left verbatim.
func Resolve(text string, vars []Variable) string {
	out, _ := Expand(text, vars)
	return out
}

// Expand behaves like Resolve and also reports whether a fixpoint was
// reached. A false result means the pass limit cut expansion short.
func Expand(text string, vars []Variable) (string, bool) {
	if text == "" || len(vars) == 0 {
		return text, true
	}

	current := text
	for i := 0; i < MaxPasses; i++ {
		next := placeholder.ReplaceAllStringFunc(current, func(match string) string {
			if value, ok := Lookup(vars, match[2:len(match)-2]); ok {
				return value
			}
			return match
		})
		if next == current {
			return current, true
		}
		current = next
	}
	return current, false
}

// Placeholders lists the distinct placeholder names referenced by text, in
// order of first appearance.
func Placeholders(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
