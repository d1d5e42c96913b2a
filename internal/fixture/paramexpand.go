package fixture

import (
	"strings"

	"github.com/fastestgo/fastest/internal/model"
	"github.com/fastestgo/fastest/internal/parametrize"
)

// ExpandParams expands item across every parametrized fixture (a
// FixtureDefinition with a non-empty Params list) in its resolved
// dependency closure, producing one TestItem variant per combination of
// parameter indices (spec.md §3: a fixture's own declared parameter
// list, "...exactly one per parameter index"). An item whose closure has
// no parametrized fixture is returned unchanged, in a one-element slice.
//
// This mirrors parametrize.Expand's own decorator-driven multiplication,
// but keyed off fixture declarations instead of a test's own
// @parametrize decorator, and run after it (item.Fixtures must already
// reflect that expansion's indirect-vs-value split).
func ExpandParams(reg *Registry, item *model.TestItem) ([]*model.TestItem, error) {
	plan, err := Resolve(reg, item.Path, item.Fixtures)
	if err != nil {
		return nil, err
	}

	var paramized []*model.FixtureDefinition
	for _, def := range plan.Order {
		if len(def.Params) > 0 {
			paramized = append(paramized, def)
		}
	}
	if len(paramized) == 0 {
		return []*model.TestItem{item}, nil
	}

	selections := []map[string]int{{}}
	for _, def := range paramized {
		var next []map[string]int
		for _, base := range selections {
			for i := range def.Params {
				sel := make(map[string]int, len(base)+1)
				for k, v := range base {
					sel[k] = v
				}
				sel[def.Name] = i
				next = append(next, sel)
			}
		}
		selections = next
	}

	out := make([]*model.TestItem, 0, len(selections))
	for _, sel := range selections {
		clone := *item
		clone.FixtureParams = sel

		idParts := make([]string, 0, len(paramized))
		for _, def := range paramized {
			idParts = append(idParts, parametrize.RowID([]interface{}{def.Params[sel[def.Name]]}))
		}
		clone.ID = item.ID + "[" + strings.Join(idParts, "-") + "]"

		out = append(out, &clone)
	}
	return out, nil
}
