package timeout_test

import (
	"sync"
	"testing"
	"time"

	"github.com/fastestgo/fastest/internal/timeout"
)

func TestControllerReportsTimedOut(t *testing.T) {
	reg := timeout.NewRegistry()
	reg.Register("test1", 5*time.Millisecond, 0)

	var mu sync.Mutex
	var events []timeout.Outcome
	ctrl := timeout.NewController(reg, time.Millisecond, func(key string, outcome timeout.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, outcome)
	})
	ctrl.Start()
	defer ctrl.Stop()

	deadline := time.After(200 * time.Millisecond)
	for {
		mu.Lock()
		n := len(events)
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("no TimedOut event observed within 200ms")
		case <-time.After(time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if events[0] != timeout.TimedOut {
		t.Errorf("events[0] = %v, want TimedOut", events[0])
	}
}

func TestControllerReportsWarningBeforeTimeout(t *testing.T) {
	reg := timeout.NewRegistry()
	reg.Register("test1", 30*time.Millisecond, 25*time.Millisecond)

	var mu sync.Mutex
	var events []timeout.Outcome
	ctrl := timeout.NewController(reg, time.Millisecond, func(key string, outcome timeout.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, outcome)
	})
	ctrl.Start()
	defer ctrl.Stop()

	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(events) < 2 {
		t.Fatalf("events = %v, want at least [Warning, TimedOut]", events)
	}
	if events[0] != timeout.Warning {
		t.Errorf("events[0] = %v, want Warning", events[0])
	}
	if events[len(events)-1] != timeout.TimedOut {
		t.Errorf("last event = %v, want TimedOut", events[len(events)-1])
	}
}

func TestCancelSuppressesTimedOut(t *testing.T) {
	reg := timeout.NewRegistry()
	reg.Register("test1", 5*time.Millisecond, 0)
	reg.Cancel("test1")

	var mu sync.Mutex
	var events []timeout.Outcome
	ctrl := timeout.NewController(reg, time.Millisecond, func(key string, outcome timeout.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, outcome)
	})
	ctrl.Start()
	time.Sleep(30 * time.Millisecond)
	ctrl.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 0 {
		t.Errorf("events = %v, want none (cancelled before deadline)", events)
	}
}
