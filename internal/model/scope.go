package model

// Scope is the lifetime boundary of a fixture instance.
type Scope int

const (
	ScopeFunction Scope = iota
	ScopeClass
	ScopeModule
	ScopePackage
	ScopeSession
)

// priority orders scopes broadest-first, used to break topological-sort
// ties so that broader-scoped fixtures are set up before narrower ones
// that depend on them (spec.md §4.D.4).
var priority = map[Scope]int{
	ScopeSession:  0,
	ScopePackage:  1,
	ScopeModule:   2,
	ScopeClass:    3,
	ScopeFunction: 4,
}

// Priority returns s's broad-to-narrow ordering priority; lower sorts
// first.
func (s Scope) Priority() int { return priority[s] }

func (s Scope) String() string {
	switch s {
	case ScopeFunction:
		return "function"
	case ScopeClass:
		return "class"
	case ScopeModule:
		return "module"
	case ScopePackage:
		return "package"
	case ScopeSession:
		return "session"
	default:
		return "unknown"
	}
}
