// Package parametrize expands a parametrize-decorated TestItem into the
// concrete TestItems it denotes (spec.md §4.B).
package parametrize

import (
	"strings"

	"github.com/fastestgo/fastest/internal/exprparse"
	"github.com/fastestgo/fastest/internal/model"
)

type row struct {
	values   []interface{}
	explicit string // explicit id, "" if none
	marks    []Marker
}

type decorator struct {
	names    []string
	rows     []row
	indirect map[string]bool
}

// Expand returns the concrete TestItems produced by item's parametrize
// decorators, in deterministic order. If item has none, it returns
// []*model.TestItem{item} unchanged. Malformed parametrize decorators are
// skipped (non-fatal, per spec.md §4.B) rather than failing the whole
// test.
func Expand(item *model.TestItem) ([]*model.TestItem, error) {
	var decorators []decorator
	for _, raw := range item.Decorators {
		call, err := exprparse.ParseCall(raw)
		if err != nil || !strings.HasSuffix(call.Name, "parametrize") {
			continue
		}
		d, ok := parseDecorator(call)
		if !ok {
			continue // malformed: skip, non-fatal
		}
		decorators = append(decorators, d)
	}

	if len(decorators) == 0 {
		item.Fixtures = append([]string(nil), item.FuncParams...)
		return []*model.TestItem{item}, nil
	}

	type instance struct {
		params   map[string]interface{}
		indirect map[string]bool
		idParts  []string
		marks    []Marker
	}
	insts := []instance{{params: map[string]interface{}{}, indirect: map[string]bool{}}}

	for _, d := range decorators {
		if len(d.rows) == 0 {
			// Zero rows collapses the whole test to zero instances
			// (spec.md §8 boundary behavior), regardless of other
			// decorators.
			return nil, nil
		}
		var next []instance
		for _, base := range insts {
			for i, r := range d.rows {
				params := cloneParams(base.params)
				indirect := cloneBools(base.indirect)
				for j, name := range d.names {
					if j < len(r.values) {
						params[name] = r.values[j]
					}
					if d.indirect[name] {
						indirect[name] = true
					}
				}
				id := r.explicit
				if id == "" {
					id = RowID(r.values)
				}
				_ = i
				next = append(next, instance{
					params:   params,
					indirect: indirect,
					idParts:  append(append([]string(nil), base.idParts...), id),
					marks:    append(append([]Marker(nil), base.marks...), r.marks...),
				})
			}
		}
		insts = next
	}

	out := make([]*model.TestItem, 0, len(insts))
	for _, inst := range insts {
		clone := *item
		clone.Params = inst.params
		clone.Indirect = inst.indirect
		clone.Fixtures = explicitFixtures(item.FuncParams, inst.params, inst.indirect)
		suffix := strings.Join(inst.idParts, "-")
		clone.ID = item.ID + "[" + suffix + "]"
		for _, m := range inst.marks {
			switch m.Kind {
			case "xfail":
				clone.ExpectFail = true
			case "skip":
				if clone.SkipReason == "" {
					clone.SkipReason = m.Reason
				}
			}
		}
		out = append(out, &clone)
	}
	return out, nil
}

func parseDecorator(call *exprparse.Call) (decorator, bool) {
	if len(call.Args) < 2 {
		return decorator{}, false
	}
	nameArg, ok := call.Args[0].(string)
	if !ok {
		return decorator{}, false
	}
	names := splitNames(nameArg)
	if len(names) == 0 {
		return decorator{}, false
	}

	var values []interface{}
	switch v := call.Args[1].(type) {
	case exprparse.List:
		values = []interface{}(v)
	case exprparse.Tuple:
		values = []interface{}(v)
	default:
		return decorator{}, false
	}

	var explicitIDs []string
	if v, ok := call.Values["ids"]; ok {
		explicitIDs = stringsOf(v)
	}

	indirect := map[string]bool{}
	if v, ok := call.Values["indirect"]; ok {
		switch iv := v.(type) {
		case bool:
			if iv {
				for _, n := range names {
					indirect[n] = true
				}
			}
		case string:
			indirect[iv] = true
		case exprparse.List:
			for _, n := range stringsOf(iv) {
				indirect[n] = true
			}
		case exprparse.Tuple:
			for _, n := range stringsOf(iv) {
				indirect[n] = true
			}
		}
	}

	rows := make([]row, 0, len(values))
	for i, raw := range values {
		r := row{}
		if pc, ok := raw.(*exprparse.Call); ok && pc.Name == "param" {
			r.values = normalizeRow(names, pc.Args)
			if id, ok := pc.Values["id"].(string); ok {
				r.explicit = id
			}
			if m, ok := pc.Values["marks"]; ok {
				r.marks = parseMarks(m)
			}
		} else {
			r.values = normalizeRow(names, []interface{}{raw})
		}
		if r.explicit == "" && i < len(explicitIDs) {
			r.explicit = explicitIDs[i]
		}
		rows = append(rows, r)
	}

	return decorator{names: names, rows: rows, indirect: indirect}, true
}

// normalizeRow reconciles a row's raw arguments with the decorator's name
// arity: a single name takes the row whole (possibly itself a tuple from
// param(...)), multiple names unpack a tuple/list row.
func normalizeRow(names []string, args []interface{}) []interface{} {
	if len(names) == 1 {
		if len(args) == 1 {
			switch v := args[0].(type) {
			case exprparse.Tuple:
				return []interface{}(v)
			case exprparse.List:
				return []interface{}(v)
			}
		}
		return args
	}
	if len(args) == 1 {
		switch v := args[0].(type) {
		case exprparse.Tuple:
			return []interface{}(v)
		case exprparse.List:
			return []interface{}(v)
		}
	}
	return args
}

func splitNames(s string) []string {
	parts := strings.Split(s, ",")
	var names []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			names = append(names, p)
		}
	}
	return names
}

func stringsOf(v interface{}) []string {
	var entries []interface{}
	switch t := v.(type) {
	case exprparse.List:
		entries = []interface{}(t)
	case exprparse.Tuple:
		entries = []interface{}(t)
	default:
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if s, ok := e.(string); ok {
			out = append(out, s)
		} else {
			out = append(out, renderValue(e))
		}
	}
	return out
}

// explicitFixtures narrows funcParams to the names that are still real
// fixture requests after parametrize expansion: a name the test's own
// parametrize decorator supplies directly is a value, not a fixture,
// unless it's marked indirect (spec.md §4.B: "indirect=... routes the
// value through a fixture of the same name instead of injecting it").
func explicitFixtures(funcParams []string, params map[string]interface{}, indirect map[string]bool) []string {
	var out []string
	for _, name := range funcParams {
		if _, isParam := params[name]; !isParam || indirect[name] {
			out = append(out, name)
		}
	}
	return out
}

func cloneParams(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBools(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
