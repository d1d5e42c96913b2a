package fixture

import (
	"sort"

	"github.com/fastestgo/fastest/internal/errors"
	"github.com/fastestgo/fastest/internal/model"
)

// Plan is the ordered, deduplicated list of fixtures a test must have set
// up before it runs, in dependency-then-scope-priority order (spec.md
// §4.D.4): broader-scoped fixtures are set up first, and within equal
// scope, the order in which they were first required is preserved.
type Plan struct {
	Order []*model.FixtureDefinition
}

// Resolve computes the fixture setup plan for a test: its explicit
// fixture requests (function parameters minus any that are parametrize
// params, per indirect handling) plus the transitive closure of their own
// dependencies, plus every autouse fixture visible to the test's module
// that the explicit set doesn't already include.
//
// It returns *errors.UnknownFixture if a requested name does not resolve,
// and *errors.CycleInFixtureGraph if the dependency graph is not a DAG.
func Resolve(reg *Registry, module string, explicit []string) (*Plan, error) {
	seen := map[string]*model.FixtureDefinition{}
	var order []string

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		for _, p := range path {
			if p == name {
				return errors.NewCycleInFixtureGraph(append(append([]string(nil), path...), name))
			}
		}
		if _, ok := seen[name]; ok {
			return nil
		}
		def, ok := reg.Lookup(module, name)
		if !ok {
			return errors.NewUnknownFixture(name)
		}
		seen[name] = nil // mark visiting
		nextPath := append(path, name)
		for _, dep := range def.Deps {
			if err := visit(dep, nextPath); err != nil {
				return err
			}
		}
		seen[name] = def
		order = append(order, name)
		return nil
	}

	for _, name := range explicit {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	for _, def := range reg.Autouse(module) {
		if err := visit(def.Name, nil); err != nil {
			return nil, err
		}
	}

	defs := make([]*model.FixtureDefinition, 0, len(order))
	for _, name := range order {
		defs = append(defs, seen[name])
	}

	// Stable sort by scope priority (broadest first); within a scope,
	// dependency order (already respected by the DFS above) is preserved
	// because sort.SliceStable only reorders across unequal keys.
	sort.SliceStable(defs, func(i, j int) bool {
		return defs[i].Scope.Priority() < defs[j].Scope.Priority()
	})

	return &Plan{Order: defs}, nil
}
