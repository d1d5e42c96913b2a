package model

// TestItem is the discovered, fully parametrized unit of execution
// (spec.md §3). It is created during discovery and never mutated after
// parametrize expansion.
type TestItem struct {
	// ID is "path::class::function[param-id]"; class and the bracketed
	// suffix are omitted when not applicable.
	ID string

	Path string
	Func string

	Class string // empty for free functions

	Async bool

	// Decorators holds the raw decorator source strings in source order,
	// verbatim, as captured by the parser.
	Decorators []string

	// Fixtures lists the fixture names this instance's function parameters
	// resolve to; the dependency resolver expands this into the full
	// transitive closure.
	Fixtures []string

	// Params holds this instance's parameter bindings (name -> JSON-like
	// value), populated by the parametrize expander.
	Params map[string]interface{}

	// Indirect is the subset of Params keys that are routed through a
	// fixture of the same name rather than injected directly.
	Indirect map[string]bool

	ExpectFail bool // xfail marker present
	SkipReason string // non-empty if a skip marker applies; "" = not skipped

	Line int

	// Timeout, if non-zero, overrides the per-category default (explicit
	// timeout decorator, spec.md §4.G).
	Timeout int64 // nanoseconds; 0 = unset

	// Body is the verbatim source text of the function body, used by the
	// embedded and native-compiled execution tiers.
	Body string

	// FuncParams lists the function's own formal parameter names in source
	// order (before parametrize injection), used by the dependency
	// resolver to find explicit fixture requests.
	FuncParams []string

	// FixtureParams selects, by fixture name, which entry of a
	// parametrized fixture's own declared Params this instance uses
	// (spec.md §3: "...exactly one per parameter index"). Populated by
	// fixture.ExpandParams; empty for an instance that depends on no
	// parametrized fixture.
	FixtureParams map[string]int
}

// Outcome is a TestResult's outcome kind (spec.md §3).
type Outcome int

const (
	Passed Outcome = iota
	Failed
	Skipped
	XFailed
	XPassed
	Error
)

func (o Outcome) String() string {
	switch o {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	case XFailed:
		return "xfailed"
	case XPassed:
		return "xpassed"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}
