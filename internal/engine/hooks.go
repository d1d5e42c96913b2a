package engine

import (
	"context"

	"github.com/fastestgo/fastest/internal/model"
)

// Hooks lets an external collaborator observe the pool's lifecycle
// without the engine depending on any concrete plugin implementation
// (SPEC_FULL.md §12's plugin-compatibility hook points). All methods are
// optional; a nil Hooks is never invoked.
type Hooks interface {
	BeforeSession(ctx context.Context)
	AfterSession(ctx context.Context)
	BeforeTest(ctx context.Context, testID string)
	AfterTest(ctx context.Context, result model.TestResult)
}

// NoopHooks implements Hooks with no-ops, so callers that only care
// about one or two methods can embed it instead of implementing all
// four.
type NoopHooks struct{}

func (NoopHooks) BeforeSession(context.Context)              {}
func (NoopHooks) AfterSession(context.Context)                {}
func (NoopHooks) BeforeTest(context.Context, string)          {}
func (NoopHooks) AfterTest(context.Context, model.TestResult) {}
