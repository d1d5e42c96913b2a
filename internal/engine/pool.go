package engine

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/fastestgo/fastest/internal/errors"
	"github.com/fastestgo/fastest/internal/model"
)

// Executor runs one Unit and produces its result. internal/tier/dispatch's
// Dispatch implements it, choosing between the native and embedded tiers
// per unit.
type Executor interface {
	Execute(ctx context.Context, u *Unit) model.TestResult
}

// Config controls Pool's worker count and behavior.
type Config struct {
	// NumWorkers is the fixed pool size; zero defaults to
	// runtime.NumCPU() (spec.md §4.H.1: "one per hardware thread").
	NumWorkers int

	// AdaptiveCap, when in (0, NumWorkers], bounds how many workers may
	// be executing a unit at once, throttling the pool under load
	// without tearing down and respawning goroutines. Zero means no
	// additional cap beyond NumWorkers.
	AdaptiveCap int

	Order OrderPolicy

	// ExitOnFirstFailure implements spec.md §4.H.4: once any unit
	// reports a Failed or Error outcome, the pool stops handing
	// out new work and drains whichever units are already in flight.
	ExitOnFirstFailure bool

	// Hooks, if non-nil, is notified around session and test lifecycle
	// events (SPEC_FULL.md §12's plugin-compatibility hook points).
	Hooks Hooks
}

// Pool is the fixed-size work-stealing worker pool (spec.md §4.H.1).
type Pool struct {
	cfg      Config
	exec     Executor
	deques   []*deque
	injector *deque
	sem      *semaphore.Weighted

	stopping int32 // atomic bool, set once exit-on-first-failure trips
}

// NewPool builds a Pool over units, ready to Run against exec.
func NewPool(cfg Config, exec Executor, units []*model.TestItem, estimate func(*model.TestItem) (ns int64, complexity int32)) *Pool {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = runtime.NumCPU()
	}
	cap := int64(cfg.AdaptiveCap)
	if cap <= 0 || cap > int64(cfg.NumWorkers) {
		cap = int64(cfg.NumWorkers)
	}

	work := make([]*Unit, 0, len(units))
	for _, it := range units {
		ns, complexity := estimate(it)
		work = append(work, NewUnit(it, ns, complexity))
	}
	work = orderUnits(work, cfg.Order)

	return &Pool{
		cfg:      cfg,
		exec:     exec,
		deques:   distribute(work, cfg.NumWorkers),
		injector: newDeque(),
		sem:      semaphore.NewWeighted(cap),
	}
}

// Run dispatches every unit to exec via the worker pool and streams a
// TestResult for each onto results (the caller owns the channel and must
// drain it; Run closes it before returning, including when ctx is
// cancelled, after in-flight units have reported).
//
// Fan-out is grounded on the teacher's build.buildOne pattern
// (errgroup.WithContext across a fixed target list); generalized here
// from "spawn exactly len(targets) goroutines" into "spawn NumWorkers
// stealing loops", since the unit count and worker count are decoupled.
func (p *Pool) Run(ctx context.Context, results chan<- model.TestResult) error {
	if p.cfg.Hooks != nil {
		p.cfg.Hooks.BeforeSession(ctx)
		defer p.cfg.Hooks.AfterSession(ctx)
	}

	g, ctx := errgroup.WithContext(ctx)

	for w := 0; w < len(p.deques); w++ {
		w := w
		g.Go(func() error {
			return p.runWorker(ctx, w, results)
		})
	}

	err := g.Wait()
	close(results)
	return err
}

func (p *Pool) runWorker(ctx context.Context, id int, results chan<- model.TestResult) error {
	own := p.deques[id]
	for {
		if ctx.Err() != nil {
			return nil
		}
		if atomic.LoadInt32(&p.stopping) != 0 {
			return nil
		}

		u := own.PopFront()
		if u == nil {
			u = p.steal(id)
		}
		if u == nil {
			return nil // no more work anywhere; this worker exits
		}

		if err := p.sem.Acquire(ctx, 1); err != nil {
			return nil // ctx cancelled while waiting for an adaptive slot
		}
		if p.cfg.Hooks != nil {
			p.cfg.Hooks.BeforeTest(ctx, u.Item.ID)
		}
		res := p.executeRecovered(ctx, u)
		p.sem.Release(1)
		if p.cfg.Hooks != nil {
			p.cfg.Hooks.AfterTest(ctx, res)
		}

		results <- res

		if p.cfg.ExitOnFirstFailure && isFailing(res.Outcome) {
			atomic.StoreInt32(&p.stopping, 1)
		}
	}
}

// steal looks for the busiest peer deque and takes one unit from its far
// end, then falls back to the shared injector.
func (p *Pool) steal(self int) *Unit {
	best := -1
	bestLen := 0
	for i, d := range p.deques {
		if i == self {
			continue
		}
		if n := d.Len(); n > bestLen {
			best, bestLen = i, n
		}
	}
	if best >= 0 {
		if u := p.deques[best].StealBack(); u != nil {
			return u
		}
	}
	return p.injector.StealBack()
}

// executeRecovered guards against the Executor itself panicking (a tier
// bug, not a test failure) and reports it as a WorkerCrash-flavored
// Error result rather than taking the whole pool down.
func (p *Pool) executeRecovered(ctx context.Context, u *Unit) (res model.TestResult) {
	defer func() {
		if r := recover(); r != nil {
			res = model.TestResult{
				TestID:  u.Item.ID,
				Outcome: model.Error,
				Error: &model.StructuredError{
					Type:    "WorkerCrash",
					Message: errors.NewWorkerCrash("inline", errors.Errorf("%v", r)).Error(),
				},
			}
		}
	}()
	return p.exec.Execute(ctx, u)
}

func isFailing(o model.Outcome) bool {
	return o == model.Failed || o == model.Error
}
