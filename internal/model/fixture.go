package model

// FixtureDefinition is a fixture as declared in source (spec.md §3).
// Immutable once created during discovery.
type FixtureDefinition struct {
	Name string

	// Module is the path of the file the fixture is declared in; ModuleDir
	// is its containing directory, used for conftest visibility.
	Module    string
	ModuleDir string

	// IsConftest is true when Module is a conftest file, making the
	// fixture visible to every test under ModuleDir (spec.md §4.C).
	IsConftest bool

	Scope   Scope
	Autouse bool

	// Params lists parameter values for a parameterized fixture; empty
	// means the fixture has exactly one instance per scope-id.
	Params []interface{}

	// Deps are the fixture names extracted from this fixture's own
	// parameter list.
	Deps []string

	Line int

	Yields bool // true for a yield-style fixture with teardown
	Async  bool

	// OnlyClass restricts a synthesized unittest-style setUp/tearDown hook
	// fixture to tests belonging to that class; empty means unrestricted.
	OnlyClass string

	// Body, for a fixture synthesized from legacy setup/teardown hooks or
	// parsed from a fixture function, holds the verbatim source text of
	// the function body (used by the embedded/native tiers).
	Body string
}

// FixtureRequest is the per-test binding context passed to the resolver
// (spec.md §3).
type FixtureRequest struct {
	TestID   string
	TestFunc string
	Module   string
	Class    string
	Package  string

	// ParamIndex selects which of a parameterized fixture's Params to use.
	ParamIndex int

	Explicit []string // fixture names the test function itself requests
}

// ScopeID computes the concrete scope-id for scope given this request
// (spec.md §3): function -> test id, class -> module+class, module ->
// module path, package -> package root, session -> a constant.
func (r *FixtureRequest) ScopeID(scope Scope) string {
	switch scope {
	case ScopeFunction:
		return r.TestID
	case ScopeClass:
		return r.Module + "::" + r.Class
	case ScopeModule:
		return r.Module
	case ScopePackage:
		return r.Package
	case ScopeSession:
		return "<session>"
	default:
		return r.TestID
	}
}

// FixtureInstance is a computed fixture value (spec.md §3).
type FixtureInstance struct {
	Name       string
	Scope      Scope
	ScopeID    string
	ParamIndex int

	Value interface{}

	// Teardown, if non-nil, is invoked exactly once when the owning scope
	// closes.
	Teardown func() error

	IsGenerator bool
}

// FixtureKey uniquely identifies a FixtureInstance within the cache.
type FixtureKey struct {
	Name       string
	Scope      Scope
	ScopeID    string
	ParamIndex int
}

// KeyOf returns fi's cache key.
func (fi *FixtureInstance) KeyOf() FixtureKey {
	return FixtureKey{Name: fi.Name, Scope: fi.Scope, ScopeID: fi.ScopeID, ParamIndex: fi.ParamIndex}
}
