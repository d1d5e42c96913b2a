package engine

import (
	"context"
	"testing"

	"github.com/fastestgo/fastest/internal/model"
)

type fakeExecutor struct {
	outcomeFor func(id string) model.Outcome
}

func (f *fakeExecutor) Execute(ctx context.Context, u *Unit) model.TestResult {
	o := model.Passed
	if f.outcomeFor != nil {
		o = f.outcomeFor(u.Item.ID)
	}
	return model.TestResult{TestID: u.Item.ID, Outcome: o}
}

func collect(ch <-chan model.TestResult) map[string]model.TestResult {
	out := map[string]model.TestResult{}
	for r := range ch {
		out[r.TestID] = r
	}
	return out
}

func estimateFlat(*model.TestItem) (int64, int32) { return 1, 1 }

func TestPoolRunDispatchesEveryUnitExactlyOnce(t *testing.T) {
	items := []*model.TestItem{
		item("t1", "a.py"),
		item("t2", "a.py"),
		item("t3", "b.py"),
		item("t4", "c.py"),
	}
	pool := NewPool(Config{NumWorkers: 2}, &fakeExecutor{}, items, estimateFlat)

	results := make(chan model.TestResult, 16)
	if err := pool.Run(context.Background(), results); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := collect(results)
	if len(got) != len(items) {
		t.Fatalf("got %d results, want %d", len(got), len(items))
	}
	for _, it := range items {
		if got[it.ID].Outcome != model.Passed {
			t.Errorf("result[%s].Outcome = %v, want Passed", it.ID, got[it.ID].Outcome)
		}
	}
}

func TestPoolExitOnFirstFailureStopsHandingOutNewWork(t *testing.T) {
	items := []*model.TestItem{
		item("t1", "a.py"),
		item("t2", "a.py"),
		item("t3", "a.py"),
		item("t4", "a.py"),
	}
	exec := &fakeExecutor{outcomeFor: func(id string) model.Outcome {
		if id == "t1" {
			return model.Failed
		}
		return model.Passed
	}}
	pool := NewPool(Config{NumWorkers: 1, ExitOnFirstFailure: true}, exec, items, estimateFlat)

	results := make(chan model.TestResult, 16)
	if err := pool.Run(context.Background(), results); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := collect(results)
	if len(got) == len(items) {
		t.Errorf("exit-on-first-failure still ran every unit; got %d results", len(got))
	}
	if got["t1"].Outcome != model.Failed {
		t.Errorf("t1 outcome = %v, want Failed", got["t1"].Outcome)
	}
}

func TestPoolRecoversExecutorPanicAsErrorResult(t *testing.T) {
	items := []*model.TestItem{item("t1", "a.py")}
	pool := NewPool(Config{NumWorkers: 1}, panicExecutor{}, items, estimateFlat)

	results := make(chan model.TestResult, 4)
	if err := pool.Run(context.Background(), results); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := collect(results)
	if got["t1"].Outcome != model.Error {
		t.Errorf("outcome = %v, want Error", got["t1"].Outcome)
	}
	if got["t1"].Error == nil || got["t1"].Error.Type != "WorkerCrash" {
		t.Errorf("Error = %+v, want a WorkerCrash-typed StructuredError", got["t1"].Error)
	}
}

type panicExecutor struct{}

func (panicExecutor) Execute(ctx context.Context, u *Unit) model.TestResult {
	panic("tier exploded")
}
