package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/subcommands"

	"github.com/fastestgo/fastest/internal/config"
	"github.com/fastestgo/fastest/internal/discovery"
	"github.com/fastestgo/fastest/internal/engine"
	"github.com/fastestgo/fastest/internal/logging"
	"github.com/fastestgo/fastest/internal/model"
	"github.com/fastestgo/fastest/internal/result"
	"github.com/fastestgo/fastest/internal/tier/dispatch"
	"github.com/fastestgo/fastest/internal/tier/embedded"
	"github.com/fastestgo/fastest/internal/tier/native"
)

// runCmd implements subcommands.Command for `fastest run`.
type runCmd struct {
	root               string
	workers            int
	exitOnFirstFailure bool
	seed               int64
	jsonPath           string
	planPath           string
	isolate            bool
	workerPath         string
	capture            bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "discover and execute a test inventory" }
func (*runCmd) Usage() string {
	return `run [-root dir] [-workers N] [-exitfirst] [-seed N] [-json path] [-dump-plan path] [-isolate] [-worker path] [-capture]:
	Discover tests under root and execute them. By default each test runs
	in-process across a work-stealing worker pool, choosing the native or
	embedded tier per test; -isolate instead routes the whole run through
	one subprocess-tier worker, and a large enough inventory automatically
	routes through the massive-parallel tier regardless of -isolate.

	-capture is off by default because internal/capture.Session brackets
	its stdout/stderr swap around the whole test body, and its Begin/End
	pair is guarded by a single process-global mutex: turning it on
	serializes the in-process pool down to one test at a time (see
	internal/capture's package doc). Pass -capture only when a test's
	stdout/stderr/created-files/env-diff actually need reporting. It has no
	effect with -isolate or on the massive-parallel tier: neither captures.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.root, "root", ".", "directory to discover tests under")
	f.IntVar(&c.workers, "workers", 0, "worker count (0 = one per hardware thread)")
	f.BoolVar(&c.exitOnFirstFailure, "exitfirst", false, "stop dispatching new work after the first failure")
	f.Int64Var(&c.seed, "seed", 0, "random ordering seed (0 = disabled)")
	f.StringVar(&c.jsonPath, "json", "", "write a resultsjson-style report to this path")
	f.StringVar(&c.planPath, "dump-plan", "", "write the resolved dispatch plan to this path for offline inspection")
	f.BoolVar(&c.isolate, "isolate", false, "run every test through a single subprocess-tier worker instead of in-process")
	f.StringVar(&c.workerPath, "worker", "fastest-worker", "path to the subprocess-tier worker binary (looked up in $PATH if bare)")
	f.BoolVar(&c.capture, "capture", false, "capture stdout/stderr per test (serializes the in-process pool, see -help)")
}

func (c *runCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	inv, err := discovery.Discover(discovery.Options{Roots: []string{c.root}})
	if err != nil {
		return fail("discovery failed: %v", err)
	}
	for path, skipErr := range inv.Skipped {
		logging.Warnf(ctx, "skipped %s: %v", path, skipErr)
	}
	if len(inv.Items) == 0 {
		fmt.Println("no tests collected")
		return subcommands.ExitSuccess
	}

	cfg := config.Config{
		MaxWorkers:         c.workers,
		ExitOnFirstFailure: c.exitOnFirstFailure,
		CaptureStdout:      c.capture,
		CaptureStderr:      c.capture,
	}.WithDefaults()
	if c.seed != 0 {
		seed := c.seed
		cfg.RandomSeed = &seed
	}

	// Strategy selection is session-wide here, not per test: spec.md
	// §4.H.2 picks the subprocess tier when "the caller requests hard
	// isolation" and the massive-parallel tier when "the inventory
	// exceeds a size threshold" — both are properties of the whole run,
	// unlike the native/embedded choice dispatch.Dispatch makes per test.
	var (
		results []model.TestResult
		runErr  error
	)
	switch {
	case c.isolate:
		fmt.Printf("running %d tests through subprocess tier %s\n", len(inv.Items), c.workerPath)
		results, runErr = runViaSubprocessTier(ctx, c.workerPath, inv.Registry, inv.Items)
	case len(inv.Items) > cfg.MassiveThreshold:
		fmt.Printf("inventory of %d exceeds the massive-tier threshold (%d); running via massive-parallel tier\n", len(inv.Items), cfg.MassiveThreshold)
		dir := filepath.Join(os.TempDir(), "fastest-massive")
		results, runErr = runViaMassiveTier(ctx, dir, inv.Registry, inv.Items)
	default:
		results, runErr = runViaPool(ctx, cfg, inv, c.planPath)
	}
	if runErr != nil {
		return fail("execution failed: %v", runErr)
	}

	report := result.Report{}
	passed, failed, skipped := 0, 0, 0
	for _, r := range results {
		// model.TestResult carries no wall-clock start on any path, so
		// "now" minus duration stands in for it in the on-disk report.
		report.Entries = append(report.Entries, result.NewEntry(time.Now().Add(-r.Duration), r))
		switch r.Outcome {
		case model.Passed, model.XFailed:
			passed++
		case model.Skipped:
			skipped++
		default:
			failed++
			fmt.Printf("FAIL %s [%s]\n", r.TestID, r.Tier)
			if r.Error != nil {
				fmt.Printf("  %s: %s\n", r.Error.Type, r.Error.Message)
			}
		}
	}
	fmt.Printf("%d passed, %d failed, %d skipped\n", passed, failed, skipped)

	if c.jsonPath != "" {
		if err := writeJSONReport(c.jsonPath, report); err != nil {
			logging.Warnf(ctx, "failed to write json report: %v", err)
		}
	}

	if failed > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// runViaPool is the default path: the in-process work-stealing pool
// dispatching through dispatch.Dispatch's per-test native/embedded tier
// selection (internal/engine, internal/tier/dispatch).
func runViaPool(ctx context.Context, cfg config.Config, inv *discovery.Inventory, planPath string) ([]model.TestResult, error) {
	nativeTier := native.New(ctx)
	defer nativeTier.Close(ctx)
	embeddedTier := embedded.New()
	defer embeddedTier.Close()
	dsp := dispatch.New(cfg, inv.Registry, nativeTier, embeddedTier)
	dsp.PrepareScopes(inv.Items)
	// Session scope, and any class/module/package scope whose last test
	// never finished normally, are only guaranteed closed here, at session
	// end (spec.md §8: "no cache entries remain at session end").
	defer func() {
		for _, err := range dsp.Cache.CloseAll() {
			logging.Warnf(ctx, "fixture teardown failed: %v", err)
		}
	}()

	estimate := func(*model.TestItem) (int64, int32) { return int64(time.Millisecond), 1 }

	var order engine.OrderPolicy
	if cfg.RandomSeed != nil {
		order.RandomSeed = *cfg.RandomSeed
	}

	if planPath != "" {
		units := engine.Plan(inv.Items, cfg.MaxWorkers, order, estimate)
		if err := writePlanDump(planPath, units); err != nil {
			logging.Warnf(ctx, "failed to write dispatch plan: %v", err)
		}
	}

	pool := engine.NewPool(engine.Config{
		NumWorkers:         cfg.MaxWorkers,
		Order:              order,
		ExitOnFirstFailure: cfg.ExitOnFirstFailure,
	}, dsp, inv.Items, estimate)

	sink := result.NewSink(cfg.MaxWorkers * 4)
	raw := make(chan model.TestResult)
	go func() { _ = pool.Run(ctx, raw) }()
	go func() {
		for r := range raw {
			sink.Push(r)
		}
		sink.Close()
	}()

	var results []model.TestResult
	for r := range sink.Channel() {
		results = append(results, r)
	}
	return results, nil
}

func writeJSONReport(path string, report result.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writePlanDump(path string, units [][]*engine.Unit) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dump := result.NewPlanDump(nil, result.DumpAssignments(units))
	return result.WriteJSON(f, dump)
}
