package embedded

import (
	"regexp"
	"strings"
)

// assertLine matches a single `assert <expr>` or `assert <expr>, <msg>`
// statement. Starlark has no assert statement, so Translate rewrites it
// into a call to the predeclared _assert builtin (grounded on
// albertocavalcante-sky's tester package, which solves the same gap with
// a predeclared `assert` struct module rather than a language
// extension).
var assertLine = regexp.MustCompile(`^(\s*)assert\s+(.+?)(?:,\s*(.+))?$`)

// Translate rewrites every `assert` statement line in body, at any
// indentation, into an _assert(...) call, leaving every other line untouched. This is a
// deliberately narrow translation: spec.md's test bodies are assumed to
// already use a Starlark-compatible expression subset (no `is`/`in`
// chains, no f-strings); Translate only bridges the one Python statement
// form (bare `assert`) that Starlark's grammar lacks outright.
func Translate(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		m := assertLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		indent, expr, msg := m[1], strings.TrimSpace(m[2]), strings.TrimSpace(m[3])
		if msg == "" {
			lines[i] = indent + "_assert(" + expr + ")"
		} else {
			lines[i] = indent + "_assert(" + expr + ", " + msg + ")"
		}
	}
	return strings.Join(lines, "\n")
}
