// Package engine implements the Execution Engine (spec.md §4.H): a
// work-stealing core that distributes Units across a fixed worker pool,
// a pluggable Executor per tier, a scheduling order policy, and the
// exit-on-first-failure / worker-crash failure semantics.
package engine

import "github.com/fastestgo/fastest/internal/model"

// Unit is a single dispatchable piece of work. Fields are ordered largest
// first and padded so a Unit sits in one 64-byte cache line on amd64/arm64,
// matching spec.md §4.H.1's "fixed-layout structure aligned to a cache
// line" requirement; Go gives no alignment pragma, so this is achieved by
// field ordering and an explicit pad array rather than a compiler
// directive.
type Unit struct {
	Item *model.TestItem // 8 bytes (pointer)

	EstimatedNS int64 // estimated duration, nanoseconds
	Complexity  int32 // estimated complexity score (spec.md §4.H.1)
	Priority    int32 // carried for callers; orderUnits and distribute do not read it

	ModuleKey string // grouping key for module-affinity scheduling (spec.md §4.H.3)

	_ [24]byte // pad to a 64-byte line
}

// NewUnit builds a Unit for item with the caller-supplied duration and
// complexity estimates, keyed for module affinity by item.Path.
func NewUnit(item *model.TestItem, estimatedNS int64, complexity int32) *Unit {
	return &Unit{
		Item:        item,
		EstimatedNS: estimatedNS,
		Complexity:  complexity,
		ModuleKey:   item.Path,
	}
}
