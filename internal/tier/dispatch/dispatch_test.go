package dispatch

import (
	"context"
	"testing"

	"github.com/fastestgo/fastest/internal/config"
	"github.com/fastestgo/fastest/internal/engine"
	"github.com/fastestgo/fastest/internal/fixture"
	"github.com/fastestgo/fastest/internal/model"
	"github.com/fastestgo/fastest/internal/source"
	"github.com/fastestgo/fastest/internal/tier/embedded"
	"github.com/fastestgo/fastest/internal/tier/native"
)

func newDispatch(t *testing.T) *Dispatch {
	t.Helper()
	nativeCtx := context.Background()
	embeddedTier := embedded.New()
	t.Cleanup(embeddedTier.Close)
	return New(config.Config{}.WithDefaults(), fixture.NewRegistry(), native.New(nativeCtx), embeddedTier)
}

func TestExecuteRunsSimpleAssertionOnNativeTier(t *testing.T) {
	d := newDispatch(t)
	item := &model.TestItem{ID: "t1", Path: "m.py", Body: "assert 1 == 1"}

	res := d.Execute(context.Background(), &engine.Unit{Item: item})

	if res.Outcome != model.Passed {
		t.Fatalf("Outcome = %v, want Passed", res.Outcome)
	}
	if res.Tier != "NativeJIT" {
		t.Errorf("Tier = %q, want NativeJIT", res.Tier)
	}
}

func TestExecuteFallsBackToEmbeddedTierForComplexBody(t *testing.T) {
	d := newDispatch(t)
	item := &model.TestItem{ID: "t2", Path: "m.py", Body: "assert [1, 2] == [1, 2]"}

	res := d.Execute(context.Background(), &engine.Unit{Item: item})

	if res.Outcome != model.Passed {
		t.Fatalf("Outcome = %v, want Passed: %+v", res.Outcome, res.Error)
	}
	if res.Tier != "Embedded" {
		t.Errorf("Tier = %q, want Embedded", res.Tier)
	}
}

func TestExecuteResolvesFixtureValue(t *testing.T) {
	reg := fixture.NewRegistry()
	module := "m.py"
	reg.AddModule(&source.FileResult{
		Path: module,
		Fixtures: []*model.FixtureDefinition{
			{Name: "db", Module: module, Scope: model.ScopeFunction, Body: "return 42"},
		},
	}, nil)

	embeddedTier := embedded.New()
	t.Cleanup(embeddedTier.Close)
	d := New(config.Config{}.WithDefaults(), reg, native.New(context.Background()), embeddedTier)
	item := &model.TestItem{ID: "t3", Path: module, Fixtures: []string{"db"}, Body: "assert db == 42"}

	res := d.Execute(context.Background(), &engine.Unit{Item: item})

	if res.Outcome != model.Passed {
		t.Fatalf("Outcome = %v, want Passed: %+v", res.Outcome, res.Error)
	}
}

func TestExecuteTearsDownYieldFixtureOnScopeClose(t *testing.T) {
	reg := fixture.NewRegistry()
	module := "m.py"
	reg.AddModule(&source.FileResult{
		Path: module,
		Fixtures: []*model.FixtureDefinition{
			{
				Name:   "conn",
				Module: module,
				Scope:  model.ScopeModule,
				Body:   "conn_id = 1\nyield conn_id\n_assert(conn_id == 1, 'conn_id lost across yield')\n",
				Yields: true,
			},
		},
	}, nil)

	embeddedTier := embedded.New()
	t.Cleanup(embeddedTier.Close)
	d := New(config.Config{}.WithDefaults(), reg, native.New(context.Background()), embeddedTier)
	item := &model.TestItem{ID: "t7", Path: module, Fixtures: []string{"conn"}, Body: "assert conn == 1"}

	res := d.Execute(context.Background(), &engine.Unit{Item: item})
	if res.Outcome != model.Passed {
		t.Fatalf("Outcome = %v, want Passed: %+v", res.Outcome, res.Error)
	}

	// PrepareScopes was never called, so Execute's own scope bookkeeping
	// is a no-op and module scope is still open: closing it directly
	// should run the yield fixture's teardown half without error.
	if errs := d.Cache.CloseScope(module); len(errs) != 0 {
		t.Fatalf("CloseScope(%q) = %v, want no errors", module, errs)
	}
	// Tearing the same scope down twice is a no-op: nothing left to close.
	if errs := d.Cache.CloseScope(module); len(errs) != 0 {
		t.Errorf("second CloseScope(%q) = %v, want no errors (already closed)", module, errs)
	}
}

func TestPrepareScopesClosesModuleScopeAfterLastDependent(t *testing.T) {
	reg := fixture.NewRegistry()
	module := "m.py"
	reg.AddModule(&source.FileResult{
		Path: module,
		Fixtures: []*model.FixtureDefinition{
			{Name: "conn", Module: module, Scope: model.ScopeModule, Body: "yield 1\n_assert(True, '')\n", Yields: true},
		},
	}, nil)

	embeddedTier := embedded.New()
	t.Cleanup(embeddedTier.Close)
	d := New(config.Config{}.WithDefaults(), reg, native.New(context.Background()), embeddedTier)
	items := []*model.TestItem{
		{ID: "t9a", Path: module, Fixtures: []string{"conn"}, Body: "assert conn == 1"},
		{ID: "t9b", Path: module, Fixtures: []string{"conn"}, Body: "assert conn == 1"},
	}
	d.PrepareScopes(items)

	for _, item := range items {
		res := d.Execute(context.Background(), &engine.Unit{Item: item})
		if res.Outcome != model.Passed {
			t.Fatalf("%s Outcome = %v, want Passed: %+v", item.ID, res.Outcome, res.Error)
		}
	}

	// Both tests sharing the module scope have finished, so it should
	// already be closed: a direct CloseScope now finds nothing to do.
	if errs := d.Cache.CloseScope(module); len(errs) != 0 {
		t.Errorf("CloseScope(%q) after both dependents finished = %v, want no errors (already closed)", module, errs)
	}
}

func TestExecuteExposesFixtureParamAndCachesPerIndex(t *testing.T) {
	reg := fixture.NewRegistry()
	module := "m.py"
	reg.AddModule(&source.FileResult{
		Path: module,
		Fixtures: []*model.FixtureDefinition{
			{Name: "db", Module: module, Scope: model.ScopeFunction, Body: "return param", Params: []interface{}{int64(10), int64(20)}},
		},
	}, nil)

	embeddedTier := embedded.New()
	t.Cleanup(embeddedTier.Close)
	d := New(config.Config{}.WithDefaults(), reg, native.New(context.Background()), embeddedTier)

	item0 := &model.TestItem{ID: "t8a", Path: module, Fixtures: []string{"db"}, Body: "assert db == 10", FixtureParams: map[string]int{"db": 0}}
	item1 := &model.TestItem{ID: "t8b", Path: module, Fixtures: []string{"db"}, Body: "assert db == 20", FixtureParams: map[string]int{"db": 1}}

	res0 := d.Execute(context.Background(), &engine.Unit{Item: item0})
	if res0.Outcome != model.Passed {
		t.Fatalf("item0 Outcome = %v, want Passed: %+v", res0.Outcome, res0.Error)
	}
	res1 := d.Execute(context.Background(), &engine.Unit{Item: item1})
	if res1.Outcome != model.Passed {
		t.Fatalf("item1 Outcome = %v, want Passed: %+v", res1.Outcome, res1.Error)
	}
}

func TestExecuteReportsFailureAsFailedOutcome(t *testing.T) {
	d := newDispatch(t)
	item := &model.TestItem{ID: "t4", Path: "m.py", Body: "assert [1] == [2]"}

	res := d.Execute(context.Background(), &engine.Unit{Item: item})

	if res.Outcome != model.Failed {
		t.Fatalf("Outcome = %v, want Failed", res.Outcome)
	}
	if res.Error == nil {
		t.Error("Error = nil, want a structured error")
	}
}

func TestExecuteHonorsSkipReason(t *testing.T) {
	d := newDispatch(t)
	item := &model.TestItem{ID: "t5", Path: "m.py", SkipReason: "not supported on this platform"}

	res := d.Execute(context.Background(), &engine.Unit{Item: item})

	if res.Outcome != model.Skipped {
		t.Fatalf("Outcome = %v, want Skipped", res.Outcome)
	}
	if res.SkipReason == "" {
		t.Error("SkipReason not propagated")
	}
}

func TestExecuteAppliesXfail(t *testing.T) {
	d := newDispatch(t)
	item := &model.TestItem{ID: "t6", Path: "m.py", Body: "assert [1] == [2]", ExpectFail: true}

	res := d.Execute(context.Background(), &engine.Unit{Item: item})

	if res.Outcome != model.XFailed {
		t.Fatalf("Outcome = %v, want XFailed", res.Outcome)
	}
}
