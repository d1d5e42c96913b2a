package massive

import (
	"context"
	"time"
)

// Poller watches a Region's completion counter and streams each newly
// completed slot to a callback as it arrives (spec.md §4.H.2.4: "The
// parent polls this counter for progress and streams results as they
// arrive"). Slots are assumed to complete in non-decreasing index order
// within one Region, which holds for this tier's own single-process
// executor (internal/tier/massive.Tier writes slot i before slot i+1)
// and for a future multi-process fan-out where each worker owns a
// contiguous index range.
type Poller struct {
	region   *Region
	total    int
	interval time.Duration
}

// NewPoller builds a Poller over region, expecting exactly total slots
// to eventually complete.
func NewPoller(region *Region, total int, interval time.Duration) *Poller {
	return &Poller{region: region, total: total, interval: interval}
}

// Run polls until every slot has completed, ctx is cancelled, or onSlot
// returns an error, invoking onSlot(index, slot) once per newly
// completed slot in order.
func (p *Poller) Run(ctx context.Context, onSlot func(index int, slot ResultSlot) error) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	next := 0
	for next < p.total {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		completed := int(p.region.Completed())
		if completed > p.total {
			completed = p.total
		}
		for ; next < completed; next++ {
			if err := onSlot(next, p.region.ReadSlot(next)); err != nil {
				return err
			}
		}
	}
	return nil
}
