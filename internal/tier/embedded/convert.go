package embedded

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/fastestgo/fastest/internal/exprparse"
)

// toStarlark converts a Go value produced by the fixture/parametrize
// layers (strings, bools, integers, floats, nil, slices, maps) into the
// matching starlark.Value, so fixture results and parametrize values can
// be bound as predeclared globals for the translated test program.
func toStarlark(v interface{}) (starlark.Value, error) {
	switch x := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(x), nil
	case int:
		return starlark.MakeInt(x), nil
	case int64:
		return starlark.MakeInt64(x), nil
	case float64:
		return starlark.Float(x), nil
	case string:
		return starlark.String(x), nil
	case []interface{}:
		elems := make([]starlark.Value, len(x))
		for i, e := range x {
			sv, err := toStarlark(e)
			if err != nil {
				return nil, err
			}
			elems[i] = sv
		}
		return starlark.NewList(elems), nil
	case map[string]interface{}:
		d := starlark.NewDict(len(x))
		for k, e := range x {
			sv, err := toStarlark(e)
			if err != nil {
				return nil, err
			}
			if err := d.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return d, nil
	case exprparse.List:
		return toStarlark([]interface{}(x))
	case exprparse.Dict:
		return toStarlark(map[string]interface{}(x))
	case exprparse.Tuple:
		elems := make(starlark.Tuple, len(x))
		for i, e := range x {
			sv, err := toStarlark(e)
			if err != nil {
				return nil, err
			}
			elems[i] = sv
		}
		return elems, nil
	default:
		return nil, fmt.Errorf("embedded tier: unsupported fixture value type %T", v)
	}
}

// fromStarlark renders a starlark.Value back to a display string, used
// to populate a frame's locals snapshot (model.Frame.Locals) from the
// program's top-level bindings at the point of failure.
func fromStarlark(v starlark.Value) string {
	return v.String()
}

// fromStarlarkValue is toStarlark's inverse: it decodes a starlark.Value
// produced by a fixture body back into a plain Go value, so a fixture's
// result can be stored in a model.FixtureInstance and handed on to
// dependent fixtures and tests as an ordinary interface{}.
func fromStarlarkValue(v starlark.Value) (interface{}, error) {
	switch x := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(x), nil
	case starlark.Int:
		if i, ok := x.Int64(); ok {
			return i, nil
		}
		return x.String(), nil
	case starlark.Float:
		return float64(x), nil
	case starlark.String:
		return string(x), nil
	case *starlark.List:
		out := make([]interface{}, 0, x.Len())
		for i := 0; i < x.Len(); i++ {
			e, err := fromStarlarkValue(x.Index(i))
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	case *starlark.Dict:
		out := make(map[string]interface{}, x.Len())
		for _, item := range x.Items() {
			k, v := item[0], item[1]
			ks, ok := starlark.AsString(k)
			if !ok {
				ks = k.String()
			}
			ev, err := fromStarlarkValue(v)
			if err != nil {
				return nil, err
			}
			out[ks] = ev
		}
		return out, nil
	default:
		return nil, fmt.Errorf("embedded tier: unsupported fixture result type %T", v)
	}
}
