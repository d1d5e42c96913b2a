package result

import (
	"encoding/json"
	"io"

	"github.com/fastestgo/fastest/internal/engine"
	"github.com/fastestgo/fastest/internal/fixture"
)

// PlanDump is the structured debug dump SPEC_FULL.md §12 asks for: the
// resolved fixture graph for one test plus the dispatch plan the engine
// built for a run, serialized for offline inspection (e.g. "why did this
// test land on worker 3 behind these other five").
type PlanDump struct {
	Fixtures []FixtureStep    `json:"fixtures"`
	Workers  []WorkerDispatch `json:"workers"`
}

// FixtureStep is one entry of a resolved fixture.Plan, in setup order.
type FixtureStep struct {
	Name  string `json:"name"`
	Scope string `json:"scope"`
}

// WorkerDispatch is the ordered list of test IDs assigned to one worker's
// local deque before stealing redistributes any of them at run time; it
// reflects the initial distribute() assignment, not the final steal-
// adjusted execution order.
type WorkerDispatch struct {
	Worker int      `json:"worker"`
	Tests  []string `json:"tests"`
}

// NewPlanDump builds a PlanDump from a resolved fixture plan and the
// per-worker unit assignment engine.Plan produced (see DumpAssignments).
func NewPlanDump(plan *fixture.Plan, assignments [][]string) PlanDump {
	d := PlanDump{}
	if plan != nil {
		for _, f := range plan.Order {
			d.Fixtures = append(d.Fixtures, FixtureStep{Name: f.Name, Scope: f.Scope.String()})
		}
	}
	for i, tests := range assignments {
		d.Workers = append(d.Workers, WorkerDispatch{Worker: i, Tests: tests})
	}
	return d
}

// DumpAssignments converts engine.Plan's per-worker unit assignment into
// the plain test-ID slices NewPlanDump expects.
func DumpAssignments(units [][]*engine.Unit) [][]string {
	out := make([][]string, len(units))
	for i, ws := range units {
		ids := make([]string, len(ws))
		for j, u := range ws {
			ids[j] = u.Item.ID
		}
		out[i] = ids
	}
	return out
}

// WriteJSON serializes a PlanDump as indented JSON for offline reading.
func WriteJSON(w io.Writer, d PlanDump) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
