package engine

import (
	"testing"

	"github.com/fastestgo/fastest/internal/model"
)

func item(id, path string) *model.TestItem {
	return &model.TestItem{ID: id, Path: path}
}

func TestGroupByModuleKeepsOrderAndGroups(t *testing.T) {
	units := []*Unit{
		NewUnit(item("a::t1", "a.py"), 0, 0),
		NewUnit(item("b::t1", "b.py"), 0, 0),
		NewUnit(item("a::t2", "a.py"), 0, 0),
	}
	groups := groupByModule(units)
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if len(groups[0]) != 2 || groups[0][0].Item.ID != "a::t1" || groups[0][1].Item.ID != "a::t2" {
		t.Errorf("groups[0] = %v, want [a::t1 a::t2]", groups[0])
	}
	if len(groups[1]) != 1 || groups[1][0].Item.ID != "b::t1" {
		t.Errorf("groups[1] = %v, want [b::t1]", groups[1])
	}
}

func TestDistributeKeepsModuleGroupsTogetherAndBalances(t *testing.T) {
	units := []*Unit{
		NewUnit(item("a::t1", "a.py"), 100, 1),
		NewUnit(item("a::t2", "a.py"), 100, 1),
		NewUnit(item("b::t1", "b.py"), 50, 1),
	}
	deques := distribute(units, 2)
	if len(deques) != 2 {
		t.Fatalf("deques = %d, want 2", len(deques))
	}

	var total int
	for _, d := range deques {
		total += d.Len()
	}
	if total != 3 {
		t.Fatalf("total units across deques = %d, want 3", total)
	}

	// Whichever deque holds "a.py"'s two units must hold both.
	for _, d := range deques {
		d.mu.Lock()
		var aCount int
		for _, u := range d.units {
			if u.ModuleKey == "a.py" {
				aCount++
			}
		}
		d.mu.Unlock()
		if aCount != 0 && aCount != 2 {
			t.Errorf("a.py units split across deque: found %d in one deque", aCount)
		}
	}
}

func TestOrderUnitsFailFirst(t *testing.T) {
	units := []*Unit{
		NewUnit(item("slow", "m.py"), 0, 0),
		NewUnit(item("failed", "m.py"), 0, 0),
		NewUnit(item("fine", "m.py"), 0, 0),
	}
	cost := map[string]float64{"failed": 10, "slow": 1, "fine": 0}
	ordered := orderUnits(units, OrderPolicy{FailFirstCost: func(id string) float64 { return cost[id] }})
	if ordered[0].Item.ID != "failed" {
		t.Errorf("ordered[0] = %s, want failed", ordered[0].Item.ID)
	}
}

func TestOrderUnitsRandomSeedDeterministic(t *testing.T) {
	build := func() []*Unit {
		return []*Unit{
			NewUnit(item("t1", "m.py"), 0, 0),
			NewUnit(item("t2", "m.py"), 0, 0),
			NewUnit(item("t3", "m.py"), 0, 0),
			NewUnit(item("t4", "m.py"), 0, 0),
		}
	}
	a := orderUnits(build(), OrderPolicy{RandomSeed: 42})
	b := orderUnits(build(), OrderPolicy{RandomSeed: 42})
	for i := range a {
		if a[i].Item.ID != b[i].Item.ID {
			t.Fatalf("same seed produced different orderings at index %d: %s vs %s", i, a[i].Item.ID, b[i].Item.ID)
		}
	}
}
