package embedded

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.starlark.net/starlark"

	"github.com/fastestgo/fastest/internal/model"
	"github.com/fastestgo/fastest/internal/timeout"
)

// Tier runs a translated test body in-process through a starlark.Thread,
// with fixture values bound as predeclared globals (spec.md §4.H.2.2:
// "the default for the vast majority of tests", "full fixture injection
// and capture"). Grounded directly on albertocavalcante-sky's
// tester.Runner.RunFile / runSingleTest: one fresh *starlark.Thread per
// test, starlark.ExecFile over the program text.
//
// Deadline enforcement goes through internal/timeout's Controller/
// Registry (spec.md §4.G) rather than a one-off time.AfterFunc per call:
// Run registers its deadline with a Tier-wide Registry that a single
// Controller polls on DefaultTick, and the controller's TimedOut event
// cancels that test's thread, mirroring the teacher's Thread.Cancel
// trigger but driven by the shared batch-checked deadline registry
// instead of one timer goroutine per test.
type Tier struct {
	registry   *timeout.Registry
	controller *timeout.Controller

	pending sync.Map // key (test/fixture name) -> *pendingDeadline
}

// pendingDeadline links a registered deadline back to the thread it
// should cancel, and records whether the controller actually fired
// TimedOut for it (as opposed to the call finishing first and cancelling
// its own registry entry).
type pendingDeadline struct {
	thread   *starlark.Thread
	timedOut int32
}

// New builds an embedded-interpreter Tier and starts its deadline
// controller. Call Close when the Tier is no longer needed to stop that
// background goroutine.
func New() *Tier {
	t := &Tier{registry: timeout.NewRegistry()}
	t.controller = timeout.NewController(t.registry, timeout.DefaultTick, t.onTimeoutEvent)
	t.controller.Start()
	return t
}

// Close stops the Tier's deadline controller.
func (t *Tier) Close() {
	t.controller.Stop()
}

func (t *Tier) onTimeoutEvent(key string, outcome timeout.Outcome) {
	if outcome != timeout.TimedOut {
		return
	}
	v, ok := t.pending.Load(key)
	if !ok {
		return
	}
	p := v.(*pendingDeadline)
	atomic.StoreInt32(&p.timedOut, 1)
	p.thread.Cancel(fmt.Sprintf("test timeout (key %s)", key))
}

// Outcome is the embedded tier's verdict for one test body.
type Outcome struct {
	Passed bool
	Locals map[string]string
	Err    *model.StructuredError
}

// Run executes body (already translated, or raw — Run calls Translate
// itself) as a standalone Starlark program. fixtures supplies the
// resolved fixture/parameter values bound as predeclared globals; name
// labels the thread for diagnostics and doubles as its deadline-registry
// key; dl, if non-zero, registers a deadline that cancels the thread
// through the Tier's Controller if the body hasn't returned by then, and
// tags the resulting error IsTimeout (spec.md §7).
func (t *Tier) Run(name string, body string, fixtures map[string]interface{}, dl time.Duration) Outcome {
	predeclared := starlark.StringDict{"_assert": newAssertBuiltin()}
	for k, v := range fixtures {
		sv, err := toStarlark(v)
		if err != nil {
			return Outcome{Err: &model.StructuredError{Type: "FixtureBindingError", Message: err.Error()}}
		}
		predeclared[k] = sv
	}

	thread := &starlark.Thread{Name: name}
	var p *pendingDeadline
	if dl > 0 {
		p = &pendingDeadline{thread: thread}
		t.pending.Store(name, p)
		t.registry.Register(name, dl, 0)
		defer func() {
			t.registry.Cancel(name)
			t.pending.Delete(name)
		}()
	}

	program := Translate(body)
	globals, err := starlark.ExecFile(thread, name, program, predeclared)

	locals := map[string]string{}
	for k, v := range globals {
		locals[k] = fromStarlark(v)
	}

	if err == nil {
		return Outcome{Passed: true, Locals: locals}
	}
	se := structuredFromErr(err)
	if p != nil && atomic.LoadInt32(&p.timedOut) == 1 {
		se.Type = "Timeout"
		se.IsTimeout = true
	}
	return Outcome{Passed: false, Locals: locals, Err: se}
}

func structuredFromErr(err error) *model.StructuredError {
	if evalErr, ok := err.(*starlark.EvalError); ok {
		return &model.StructuredError{
			Type:    "StarlarkError",
			Message: evalErr.Msg,
			Frames:  framesFromCallStack(evalErr.CallStack),
		}
	}
	if thread, ok := err.(interface{ Error() string }); ok {
		return &model.StructuredError{Type: "StarlarkError", Message: thread.Error()}
	}
	return &model.StructuredError{Type: "StarlarkError", Message: err.Error()}
}

func framesFromCallStack(stk starlark.CallStack) []model.Frame {
	frames := make([]model.Frame, 0, len(stk))
	for _, f := range stk {
		frames = append(frames, model.Frame{
			File: f.Pos.Filename(),
			Line: int(f.Pos.Line),
			Func: f.Name,
		})
	}
	return frames
}
