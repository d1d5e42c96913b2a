package timeout

import (
	"sync/atomic"
	"time"

	"github.com/fastestgo/fastest/internal/errors"
)

// PanicHandler handles a recovered panic from a guarded call.
type PanicHandler func(val interface{})

// Guard runs f on its own goroutine and enforces timeout+gracePeriod: if
// f has not returned by then, Guard abandons it and returns a
// *errors.Timeout immediately rather than waiting forever on a test that
// refuses to respect cancellation. If f panics before the deadline, ph is
// invoked on f's own goroutine (so the panic's stack trace stays
// accurate) and Guard returns nil.
//
// Adapted from the teacher's usercode.SafeCall: two goroutines race for a
// single CAS token, so whichever of "f returned" and "deadline reached"
// happens first decides the outcome, and the loser's work (late panic
// handling, or a timeout already answered) is simply discarded.
func Guard(stage string, timeout, gracePeriod time.Duration, ph PanicHandler, f func()) error {
	var token uintptr
	takeToken := func() bool { return atomic.CompareAndSwapUintptr(&token, 0, 1) }

	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() {
			val := recover()
			if !takeToken() {
				return // the deadline already won; nothing to report
			}
			if val != nil {
				ph(val)
			}
		}()
		f()
	}()

	timer := time.NewTimer(timeout + gracePeriod)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		if takeToken() {
			return errors.NewTimeout(stage)
		}
		<-done
		return nil
	}
}
