// Package fixture implements the Fixture Graph Resolver (spec.md §4.D):
// a registry of visible fixture definitions, a dependency resolver that
// expands a test's explicit and autouse fixtures into a topologically
// ordered plan, and a scope-keyed cache that instantiates and tears
// fixtures down in LIFO order.
package fixture

import (
	"sort"

	"github.com/fastestgo/fastest/internal/model"
	"github.com/fastestgo/fastest/internal/source"
)

// Registry holds every fixture definition discovered across a run,
// resolving name collisions by conftest proximity (spec.md §4.C):
// a module's own fixture shadows a same-named conftest fixture, and a
// conftest closer to the module directory shadows one further up the
// tree.
type Registry struct {
	// byModule maps a module path to the fixtures visible to tests
	// declared directly in that module (own + inherited conftest chain,
	// already resolved by proximity).
	byModule map[string]map[string]*model.FixtureDefinition

	// autouse lists, per module, the fixtures visible to it that have
	// Autouse set, ordered broadest scope first. Recomputed alongside
	// byModule.
	autouse map[string][]*model.FixtureDefinition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byModule: map[string]map[string]*model.FixtureDefinition{},
		autouse:  map[string][]*model.FixtureDefinition{},
	}
}

// AddModule records the fixtures visible to tests declared in module
// (given its own FileResult and its conftest chain, outermost first, as
// returned by source.ConftestChain).
func (r *Registry) AddModule(module *source.FileResult, conftestChain []*source.FileResult) {
	visible := source.VisibleFixtures(module, conftestChain)
	r.byModule[module.Path] = visible

	var au []*model.FixtureDefinition
	for _, chain := range conftestChain {
		for _, f := range chain.Fixtures {
			if f.Autouse && visible[f.Name] == f {
				au = append(au, f)
			}
		}
	}
	for _, f := range module.Fixtures {
		if f.Autouse && visible[f.Name] == f {
			au = append(au, f)
		}
	}
	sort.SliceStable(au, func(i, j int) bool { return au[i].Scope.Priority() < au[j].Scope.Priority() })
	r.autouse[module.Path] = au
}

// Lookup resolves name as visible to a test declared in module, or
// reports ok=false if no such fixture is visible.
func (r *Registry) Lookup(module, name string) (*model.FixtureDefinition, bool) {
	visible, ok := r.byModule[module]
	if !ok {
		return nil, false
	}
	def, ok := visible[name]
	return def, ok
}

// Autouse returns the autouse fixtures visible to tests in module,
// ordered broadest-scope-first.
func (r *Registry) Autouse(module string) []*model.FixtureDefinition {
	return r.autouse[module]
}
