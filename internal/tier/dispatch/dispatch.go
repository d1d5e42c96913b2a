// Package dispatch implements engine.Executor by wiring the fixture
// resolver, the native-compiled and embedded tiers, and the capture
// manager together around a single test (spec.md §4.H.2): it is the
// concrete strategy selector the spec describes in the abstract.
package dispatch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fastestgo/fastest/internal/capture"
	"github.com/fastestgo/fastest/internal/config"
	"github.com/fastestgo/fastest/internal/engine"
	"github.com/fastestgo/fastest/internal/fixture"
	"github.com/fastestgo/fastest/internal/model"
	"github.com/fastestgo/fastest/internal/tier/embedded"
	"github.com/fastestgo/fastest/internal/tier/native"
	"github.com/fastestgo/fastest/internal/timeout"
)

// Dispatch is the default engine.Executor: tier 1 (native) is tried
// first, falling back to tier 2 (embedded) on any detection/compile
// failure, per spec.md §4.H.2's fallback contract. Tiers 3 (subprocess)
// and 4 (massive-parallel) are not Executors: cmd/fastest's
// runViaSubprocessTier and runViaMassiveTier run a whole inventory
// through them, for hard isolation or very large inventories, and this
// tier chain never falls through to them.
type Dispatch struct {
	Config   config.Config
	Registry *fixture.Registry
	Cache    *fixture.Cache
	Native   *native.Tier
	Embedded *embedded.Tier

	scopeMu     sync.Mutex
	scopeRemain map[string]int // class/module/package scope-id -> tests of that scope not yet executed
}

// New builds a Dispatch ready to Execute against reg's fixture graph.
func New(cfg config.Config, reg *fixture.Registry, nativeTier *native.Tier, embeddedTier *embedded.Tier) *Dispatch {
	return &Dispatch{
		Config:   cfg,
		Registry: reg,
		Cache:    fixture.NewCache(),
		Native:   nativeTier,
		Embedded: embeddedTier,
	}
}

// scopedFixtures lists the broader-than-function scopes Dispatch closes
// on its own as their tests finish (spec.md §4.D). Function scope closes
// per test in Execute; session scope is the caller's responsibility to
// close once, at the end of the whole run (see Cache.CloseAll).
var scopedFixtures = []model.Scope{model.ScopeClass, model.ScopeModule, model.ScopePackage}

// requestFor builds the FixtureRequest item's own fixture resolution and
// scope-id bookkeeping both key off, so the two stay consistent. Package
// is approximated as item's containing directory (spec.md §3: "package ⇒
// nearest package root"), since this codebase has no separate notion of
// a package root beyond the filesystem directory a test file lives in.
func requestFor(item *model.TestItem) *model.FixtureRequest {
	return &model.FixtureRequest{
		TestID:   item.ID,
		TestFunc: item.Func,
		Module:   item.Path,
		Class:    item.Class,
		Package:  filepath.Dir(item.Path),
	}
}

// PrepareScopes precomputes, for every class/module/package scope-id
// items touch, how many of those items have not yet executed. Execute
// decrements these as each test finishes and closes a scope (tearing
// down its fixtures LIFO) the moment its count reaches zero, rather than
// deferring every broader-than-function scope to session end. Call this
// once with the full set of items a Dispatch will run, before any
// Execute call.
func (d *Dispatch) PrepareScopes(items []*model.TestItem) {
	d.scopeMu.Lock()
	defer d.scopeMu.Unlock()
	d.scopeRemain = make(map[string]int, len(items))
	for _, item := range items {
		req := requestFor(item)
		for _, scope := range scopedFixtures {
			d.scopeRemain[req.ScopeID(scope)]++
		}
	}
}

// closeFinishedScopes decrements item's class/module/package scope
// counters and closes any that just reached zero. A test that never
// reached this point (skipped, or failed fixture setup before any
// defer was registered) leaves its scopes' counters one higher than
// they should be; Cache.CloseAll at session end is the backstop that
// still tears those down.
func (d *Dispatch) closeFinishedScopes(item *model.TestItem) {
	if d.scopeRemain == nil {
		return
	}
	req := requestFor(item)
	d.scopeMu.Lock()
	var toClose []string
	for _, scope := range scopedFixtures {
		id := req.ScopeID(scope)
		d.scopeRemain[id]--
		if d.scopeRemain[id] <= 0 {
			toClose = append(toClose, id)
			delete(d.scopeRemain, id)
		}
	}
	d.scopeMu.Unlock()

	for _, id := range toClose {
		d.Cache.CloseScope(id)
	}
}

// Execute implements engine.Executor.
func (d *Dispatch) Execute(ctx context.Context, u *engine.Unit) model.TestResult {
	item := u.Item
	start := time.Now()

	if item.SkipReason != "" {
		return model.TestResult{TestID: item.ID, Outcome: model.Skipped, SkipReason: item.SkipReason, Tier: "Skipped"}
	}

	values, err := d.resolveFixtures(item)
	if err != nil {
		return model.TestResult{
			TestID:  item.ID,
			Outcome: model.Error,
			Error:   &model.StructuredError{Type: "FixtureSetupFailure", Message: err.Error()},
		}
	}
	// Function scope closes as soon as this test finishes; broader
	// scopes (class/module/package) only close once every test sharing
	// that scope-id has finished, so that defer runs second (LIFO: the
	// last-deferred call runs first).
	defer d.closeFinishedScopes(item)
	defer d.Cache.CloseScope(item.ID) // function scope closes at test end (spec.md §4.D)

	var capSession *capture.Session
	if d.Config.CaptureStdout || d.Config.CaptureStderr || d.Config.IsolateFilesystem || d.Config.IsolateEnvironment {
		capSession, err = capture.Begin(capture.Options{
			CaptureStdout:      d.Config.CaptureStdout,
			CaptureStderr:      d.Config.CaptureStderr,
			MaxOutputSize:      d.Config.MaxOutputSize,
			IsolateFilesystem:  d.Config.IsolateFilesystem,
			IsolateEnvironment: d.Config.IsolateEnvironment,
		})
		if err != nil {
			return model.TestResult{
				TestID:  item.ID,
				Outcome: model.Error,
				Error:   &model.StructuredError{Type: "InternalError", Message: err.Error()},
			}
		}
	}

	res := d.runBody(ctx, item, values)

	if capSession != nil {
		capResult, endErr := capSession.End()
		if endErr == nil {
			res.Stdout = capResult.Stdout
			res.Stderr = capResult.Stderr
			res.CreatedFiles = capResult.CreatedFiles
			res.EnvDiff = capResult.EnvDiff
		}
	}

	res.TestID = item.ID
	res.Duration = time.Since(start)
	applyXfail(item, &res)
	return res
}

// runBody tries the native tier and falls back to the embedded tier,
// applying the per-category default timeout (internal/timeout.Select).
func (d *Dispatch) runBody(ctx context.Context, item *model.TestItem, values map[string]interface{}) model.TestResult {
	if d.Native != nil {
		if pass, ok := d.Native.TryRun(ctx, item.Body); ok {
			if pass {
				return model.TestResult{Outcome: model.Passed, Tier: "NativeJIT"}
			}
			return model.TestResult{
				Outcome: model.Failed,
				Tier:    "NativeJIT",
				Error:   &model.StructuredError{Type: "AssertionError", Message: "assertion failed"},
			}
		}
	}

	out := d.embeddedRun(item, values)
	if out.Err != nil {
		return model.TestResult{Outcome: model.Failed, Tier: "Embedded", Error: out.Err}
	}
	return model.TestResult{Outcome: model.Passed, Tier: "Embedded"}
}

func (d *Dispatch) embeddedRun(item *model.TestItem, values map[string]interface{}) embedded.Outcome {
	return d.Embedded.Run(item.ID, item.Body, values, d.timeoutFor(item))
}

func (d *Dispatch) timeoutFor(item *model.TestItem) time.Duration {
	explicit := time.Duration(item.Timeout)
	category := timeout.CategorySync
	if item.Async {
		category = timeout.CategoryAsync
	}
	return timeout.Select(explicit, category, timeout.Defaults{
		Sync:  d.Config.DefaultTimeout,
		Async: d.Config.AsyncTimeout,
	})
}

// resolveFixtures resolves item's fixture plan against d.Registry and
// instantiates each entry through d.Cache, running fixture bodies via the
// embedded tier (spec.md §4.D).
func (d *Dispatch) resolveFixtures(item *model.TestItem) (map[string]interface{}, error) {
	return ResolveFixtures(d.Registry, d.Cache, d.Embedded, item)
}

// ResolveFixtures resolves item's fixture plan against reg and instantiates
// each entry through cache, running fixture bodies via emb (spec.md §4.D).
// Exported so callers outside the per-test Dispatch.Execute path — the
// subprocess and massive-parallel tiers (cmd/fastest), which hand a test's
// body off to a worker rather than running it through Dispatch themselves —
// can resolve a test's fixture values in the parent process before building
// that worker's input, instead of sending an unresolved parameter map.
func ResolveFixtures(reg *fixture.Registry, cache *fixture.Cache, emb *embedded.Tier, item *model.TestItem) (map[string]interface{}, error) {
	plan, err := fixture.Resolve(reg, item.Path, item.Fixtures)
	if err != nil {
		return nil, err
	}

	req := requestFor(item)
	values := map[string]interface{}{}
	for k, v := range item.Params {
		if !item.Indirect[k] {
			values[k] = v
		}
	}

	for _, def := range plan.Order {
		deps := map[string]interface{}{}
		for _, dep := range def.Deps {
			deps[dep] = values[dep]
		}

		paramIndex := 0
		if n := len(def.Params); n > 0 {
			paramIndex = item.FixtureParams[def.Name]
			if paramIndex < 0 || paramIndex >= n {
				paramIndex = 0
			}
			// request.param, pytest's name for the selected value, has no
			// object to hang off of in this Starlark environment, so the
			// selection is exposed the same way a dependency is: a
			// predeclared global, named for the convention it stands in for.
			deps["param"] = def.Params[paramIndex]
		}
		req.ParamIndex = paramIndex

		key := model.FixtureKey{Name: def.Name, Scope: def.Scope, ScopeID: req.ScopeID(def.Scope), ParamIndex: req.ParamIndex}
		def := def
		inst, err := cache.GetOrCreate(key, deps, func(deps map[string]interface{}) (interface{}, func() error, error) {
			return emb.RunFixture(def.Name, def.Body, deps)
		})
		if err != nil {
			return nil, err
		}
		values[def.Name] = inst.Value
	}
	return values, nil
}

// ResolveBatch resolves fixture values for every item in items against reg,
// sharing one fixture.Cache across the whole batch so that fixtures scoped
// broader than function (class/module/package/session) are set up once and
// reused across the items that share their scope-id, rather than once per
// item. All scopes still open once every item has been attempted are closed
// before returning (spec.md §8: "no cache entries remain at session end"),
// since a subprocess/massive-tier batch has no later per-test hook to close
// them from. Items whose own fixture plan fails resolve are reported in
// failed (spec.md §4.D: "fatal for the affected test only") and are absent
// from the returned values map.
func ResolveBatch(reg *fixture.Registry, emb *embedded.Tier, items []*model.TestItem) (values map[string]map[string]interface{}, failed map[string]error) {
	cache := fixture.NewCache()
	values = make(map[string]map[string]interface{}, len(items))
	failed = map[string]error{}
	for _, item := range items {
		v, err := ResolveFixtures(reg, cache, emb, item)
		if err != nil {
			failed[item.ID] = err
			continue
		}
		values[item.ID] = v
	}
	cache.CloseAll()
	return values, failed
}

// applyXfail turns a Failed outcome on an xfail-marked test into XFailed,
// and a Passed outcome on one into XPassed (spec.md §3).
func applyXfail(item *model.TestItem, res *model.TestResult) {
	if !item.ExpectFail {
		return
	}
	switch res.Outcome {
	case model.Failed, model.Error:
		res.Outcome = model.XFailed
	case model.Passed:
		res.Outcome = model.XPassed
	}
}
