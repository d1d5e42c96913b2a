package embedded

import (
	"fmt"

	"go.starlark.net/starlark"
)

// newAssertBuiltin returns the predeclared `_assert` function that
// Translate's rewritten `assert` statements call. Modeled on
// albertocavalcante-sky's assertTrue/assertionError (tester/
// assertions.go), narrowed to the one-argument-plus-optional-message
// form a translated bare `assert expr[, msg]` statement needs.
func newAssertBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("_assert", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var cond starlark.Value
		var msg starlark.Value = starlark.None
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "cond", &cond, "msg?", &msg); err != nil {
			return nil, err
		}
		if !cond.Truth() {
			if s, ok := msg.(starlark.String); ok {
				return nil, fmt.Errorf("assertion failed: %s", string(s))
			}
			return nil, fmt.Errorf("assertion failed: %s", cond.String())
		}
		return starlark.None, nil
	})
}
