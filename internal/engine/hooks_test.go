package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/fastestgo/fastest/internal/model"
)

type recordingHooks struct {
	NoopHooks
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) BeforeSession(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "before-session")
}

func (h *recordingHooks) AfterSession(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "after-session")
}

func (h *recordingHooks) BeforeTest(_ context.Context, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "before:"+id)
}

func (h *recordingHooks) AfterTest(_ context.Context, res model.TestResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "after:"+res.TestID)
}

func TestPoolInvokesHooksAroundSessionAndTests(t *testing.T) {
	hooks := &recordingHooks{}
	items := []*model.TestItem{item("t1", "a.py")}
	pool := NewPool(Config{NumWorkers: 1, Hooks: hooks}, &fakeExecutor{}, items, estimateFlat)

	results := make(chan model.TestResult, 4)
	if err := pool.Run(context.Background(), results); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for range results {
	}

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if hooks.events[0] != "before-session" {
		t.Errorf("events[0] = %q, want before-session", hooks.events[0])
	}
	if hooks.events[len(hooks.events)-1] != "after-session" {
		t.Errorf("last event = %q, want after-session", hooks.events[len(hooks.events)-1])
	}
	if !contains(hooks.events, "before:t1") || !contains(hooks.events, "after:t1") {
		t.Errorf("events = %v, want before:t1 and after:t1", hooks.events)
	}
}

func contains(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
