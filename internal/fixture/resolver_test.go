package fixture_test

import (
	"testing"

	"github.com/fastestgo/fastest/internal/fixture"
	"github.com/fastestgo/fastest/internal/model"
	"github.com/fastestgo/fastest/internal/source"
)

func defFixture(name string, scope model.Scope, autouse bool, deps ...string) *model.FixtureDefinition {
	return &model.FixtureDefinition{Name: name, Scope: scope, Autouse: autouse, Deps: deps}
}

func moduleResult(path string, defs ...*model.FixtureDefinition) *source.FileResult {
	return &source.FileResult{Path: path, Fixtures: defs, ClassHooks: map[string]*source.ClassHooks{}}
}

func TestResolveOrdersBroadestScopeFirst(t *testing.T) {
	reg := fixture.NewRegistry()
	reg.AddModule(moduleResult("t.py",
		defFixture("client", model.ScopeFunction, false, "db"),
		defFixture("db", model.ScopeModule, false),
	), nil)

	plan, err := fixture.Resolve(reg, "t.py", []string{"client"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(plan.Order) != 2 {
		t.Fatalf("len(Order) = %d, want 2", len(plan.Order))
	}
	if plan.Order[0].Name != "db" || plan.Order[1].Name != "client" {
		t.Errorf("Order = [%s, %s], want [db, client]", plan.Order[0].Name, plan.Order[1].Name)
	}
}

func TestResolveIncludesAutouse(t *testing.T) {
	reg := fixture.NewRegistry()
	reg.AddModule(moduleResult("t.py",
		defFixture("setup_env", model.ScopeSession, true),
		defFixture("client", model.ScopeFunction, false),
	), nil)

	plan, err := fixture.Resolve(reg, "t.py", []string{"client"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	names := map[string]bool{}
	for _, d := range plan.Order {
		names[d.Name] = true
	}
	if !names["setup_env"] {
		t.Errorf("autouse fixture setup_env missing from plan: %+v", plan.Order)
	}
}

func TestResolveUnknownFixture(t *testing.T) {
	reg := fixture.NewRegistry()
	reg.AddModule(moduleResult("t.py"), nil)

	if _, err := fixture.Resolve(reg, "t.py", []string{"missing"}); err == nil {
		t.Fatalf("Resolve succeeded, want UnknownFixture error")
	}
}

func TestResolveCycle(t *testing.T) {
	reg := fixture.NewRegistry()
	reg.AddModule(moduleResult("t.py",
		defFixture("a", model.ScopeFunction, false, "b"),
		defFixture("b", model.ScopeFunction, false, "a"),
	), nil)

	if _, err := fixture.Resolve(reg, "t.py", []string{"a"}); err == nil {
		t.Fatalf("Resolve succeeded, want CycleInFixtureGraph error")
	}
}

func TestConftestProximityShadowing(t *testing.T) {
	outer := moduleResult("conftest.py", defFixture("client", model.ScopeFunction, false))
	inner := moduleResult("pkg/conftest.py", defFixture("client", model.ScopeModule, false))
	module := moduleResult("pkg/test_mod.py")

	visible := source.VisibleFixtures(module, []*source.FileResult{outer, inner})
	got, ok := visible["client"]
	if !ok {
		t.Fatalf("client fixture not visible")
	}
	if got.Scope != model.ScopeModule {
		t.Errorf("got.Scope = %v, want module (the nearer conftest should win)", got.Scope)
	}
}
