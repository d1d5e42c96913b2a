package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fastestgo/fastest/internal/errors"
	"github.com/fastestgo/fastest/internal/fixture"
	"github.com/fastestgo/fastest/internal/model"
	"github.com/fastestgo/fastest/internal/tier/dispatch"
	"github.com/fastestgo/fastest/internal/tier/embedded"
	"github.com/fastestgo/fastest/internal/tier/massive"
	"github.com/fastestgo/fastest/internal/tier/subprocess"
)

// runViaMassiveTier executes every item through the massive-parallel
// tier (spec.md §4.H.2.4), used once an inventory crosses
// config.Config.MassiveThreshold regardless of -isolate, since at that
// size the per-test goroutine-pool path (internal/engine) pays more
// scheduling overhead than the tier exists to avoid.
//
// Fixture values are resolved here, in the parent process, via
// dispatch.ResolveBatch before any InventoryItem is built: the massive
// tier, which runs in-process, only ever sees a test's body and its
// already-resolved fixture values (spec.md §4.D/§4.E is a resolver-side
// concern, not something tier 4 re-derives).
func runViaMassiveTier(ctx context.Context, dir string, reg *fixture.Registry, items []*model.TestItem) ([]model.TestResult, error) {
	emb := embedded.New()
	defer emb.Close()
	resolved, failed := dispatch.ResolveBatch(reg, emb, items)

	runnable := make([]*model.TestItem, 0, len(items))
	for _, it := range items {
		if _, ok := failed[it.ID]; !ok {
			runnable = append(runnable, it)
		}
	}

	invItems := make([]massive.InventoryItem, len(runnable))
	for i, it := range runnable {
		invItems[i] = massive.InventoryItem{ID: it.ID, Body: it.Body, Fixtures: resolved[it.ID]}
	}

	var region *massive.Region
	var inv *massive.Inventory
	if len(runnable) > 0 {
		tier := massive.New(dir)
		var err error
		inv, region, err = tier.Run(ctx, invItems)
		if err != nil {
			return nil, err
		}
		defer inv.Close()
		defer region.Close()
	}

	results := make([]model.TestResult, 0, len(items))
	runIdx := 0
	for _, it := range items {
		if err, ok := failed[it.ID]; ok {
			results = append(results, fixtureFailureResult(it, err))
			continue
		}
		slot := region.ReadSlot(runIdx)
		res := model.TestResult{TestID: it.ID, Tier: "MassiveParallel", Duration: time.Duration(slot.DurationNS)}
		if slot.Pass {
			res.Outcome = model.Passed
		} else {
			res.Outcome = model.Failed
			res.Error = &model.StructuredError{Type: "AssertionError", Message: region.ErrorText(slot)}
		}
		results = append(results, res)
		runIdx++
	}
	return results, nil
}

// fixtureFailureResult reports a test whose fixture plan could not be
// resolved as Error, per spec.md §4.D: UnknownFixture/CycleInFixtureGraph
// are "fatal for the affected test only" and never reach the tier itself.
func fixtureFailureResult(it *model.TestItem, err error) model.TestResult {
	return model.TestResult{
		TestID:  it.ID,
		Outcome: model.Error,
		Error:   &model.StructuredError{Type: "FixtureSetupFailure", Message: err.Error()},
	}
}

// runViaSubprocessTier executes every item in one batch against a
// single worker subprocess (spec.md §4.H.2.3), selected by -isolate when
// the caller wants a hard process boundary around test execution rather
// than the in-process embedded tier.
//
// Fixture values are resolved here, in the parent process, via
// dispatch.ResolveBatch before any TestSpec is built: the worker's own
// handle() treats setup_fixtures/cleanup_fixtures as no-ops and expects
// RunTestsRequest.Tests[i].Fixtures to already carry resolved values
// (internal/tier/subprocess/worker.go), so the parent must be the one
// doing spec.md §4.D/§4.E's resolution, not the worker.
func runViaSubprocessTier(ctx context.Context, workerPath string, reg *fixture.Registry, items []*model.TestItem) ([]model.TestResult, error) {
	emb := embedded.New()
	defer emb.Close()
	resolved, failed := dispatch.ResolveBatch(reg, emb, items)

	runnable := make([]*model.TestItem, 0, len(items))
	for _, it := range items {
		if _, ok := failed[it.ID]; !ok {
			runnable = append(runnable, it)
		}
	}

	byID := map[string]subprocess.TestOutcome{}
	if len(runnable) > 0 {
		sup, err := subprocess.Start(ctx, workerPath)
		if err != nil {
			return nil, fmt.Errorf("start worker subprocess: %w", err)
		}
		defer sup.Shutdown(ctx)

		specs := make([]subprocess.TestSpec, len(runnable))
		for i, it := range runnable {
			specs[i] = subprocess.TestSpec{ID: it.ID, Body: it.Body, Fixtures: resolved[it.ID], TimeoutNS: it.Timeout}
		}

		outcomes, err := sup.RunBatch(ctx, specs)
		// A worker crash leaves outcomes empty, so every test of the batch
		// is reported Error below and the run goes on.
		var crash *errors.WorkerCrash
		if err != nil && !errors.As(err, &crash) {
			return nil, err
		}
		for _, o := range outcomes {
			byID[o.ID] = o
		}
	}

	results := make([]model.TestResult, 0, len(items))
	for _, it := range items {
		if err, ok := failed[it.ID]; ok {
			results = append(results, fixtureFailureResult(it, err))
			continue
		}
		out, ok := byID[it.ID]
		res := model.TestResult{TestID: it.ID, Tier: "Subprocess"}
		switch {
		case !ok:
			res.Outcome = model.Error
			res.Error = &model.StructuredError{Type: "InternalError", Message: "worker never reported a result for this test"}
		case out.Passed:
			res.Outcome = model.Passed
		default:
			res.Outcome = model.Failed
			res.Error = &model.StructuredError{Type: "AssertionError", Message: out.Message}
		}
		results = append(results, res)
	}
	return results, nil
}
