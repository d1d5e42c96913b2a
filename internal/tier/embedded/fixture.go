package embedded

import (
	"regexp"
	"strings"

	"go.starlark.net/starlark"
)

var returnOrYield = regexp.MustCompile(`^(\s*)(?:return|yield)(?:\s+(.*))?$`)
var yieldOnly = regexp.MustCompile(`^(\s*)yield(?:\s+(.*))?$`)

// translateReturn rewrites bare top-level `return [expr]` / `yield [expr]`
// statements into assignments to a sentinel `_fixture_result` binding,
// using the same line-rewrite technique Translate uses for `assert`:
// Starlark's ExecFile runs a flat top-level program, which has no
// function to return a value from, so the value has to come back as a
// plain global binding instead.
func translateReturn(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		m := returnOrYield.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		expr := strings.TrimSpace(m[2])
		if expr == "" {
			expr = "None"
		}
		lines[i] = m[1] + "_fixture_result = " + expr
	}
	return strings.Join(lines, "\n")
}

// splitAtYield splits body at its first top-level `yield` statement into
// a setup half (everything up to and including the yield line) and a
// teardown half (everything after), following the pytest generator-
// fixture convention: code after `yield` runs once the fixture's scope
// closes, not immediately. A fixture with no yield statement has no
// teardown half.
func splitAtYield(body string) (setup, teardown string, hasYield bool) {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if yieldOnly.MatchString(line) {
			return strings.Join(lines[:i+1], "\n"), strings.Join(lines[i+1:], "\n"), true
		}
	}
	return body, "", false
}

// RunFixture executes a fixture body in-process and returns its resolved
// value plus, for a yield-style fixture, a teardown closure that runs the
// statements after the yield (spec.md §3). deps holds already-resolved
// dependency values bound as predeclared globals by name.
//
// Starlark has no generator-resume primitive, so the teardown half does
// not literally resume the same paused execution; instead it re-executes
// in a fresh Thread predeclared with both the original deps and every
// name the setup half bound at module scope (so a local computed before
// the yield, e.g. a connection handle, is still visible to the code that
// closes it).
func (t *Tier) RunFixture(name, body string, deps map[string]interface{}) (interface{}, func() error, error) {
	predeclared := starlark.StringDict{"_assert": newAssertBuiltin()}
	for k, v := range deps {
		sv, err := toStarlark(v)
		if err != nil {
			return nil, nil, err
		}
		predeclared[k] = sv
	}

	setupBody, teardownBody, hasYield := splitAtYield(body)

	thread := &starlark.Thread{Name: name}
	program := Translate(translateReturn(setupBody))
	globals, err := starlark.ExecFile(thread, name, program, predeclared)
	if err != nil {
		return nil, nil, err
	}

	var value interface{}
	if result, ok := globals["_fixture_result"]; ok {
		if value, err = fromStarlarkValue(result); err != nil {
			return nil, nil, err
		}
	}

	var teardownFn func() error
	if hasYield && strings.TrimSpace(teardownBody) != "" {
		teardownFn = func() error {
			teardownPredeclared := starlark.StringDict{}
			for k, v := range predeclared {
				teardownPredeclared[k] = v
			}
			for k, v := range globals {
				teardownPredeclared[k] = v
			}
			teardownThread := &starlark.Thread{Name: name + ".teardown"}
			_, err := starlark.ExecFile(teardownThread, name+".teardown", Translate(teardownBody), teardownPredeclared)
			return err
		}
	}

	return value, teardownFn, nil
}
