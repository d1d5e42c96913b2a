package parametrize

import "github.com/fastestgo/fastest/internal/exprparse"

// Marker is a decorator-encoded tag that modifies execution policy
// (spec.md glossary: Marker). Only the subset the expander itself acts on
// is represented here; other markers (e.g. group/timeout) are read
// elsewhere from the raw decorator text.
type Marker struct {
	Kind   string // "xfail" or "skip"
	Reason string
}

// parseMarks extracts xfail/skip markers from a param(...)'s marks=
// keyword value, which is a list of mark references such as
// `pytest.mark.xfail` or `pytest.mark.skip(reason="...")`.
func parseMarks(v interface{}) []Marker {
	var entries []interface{}
	switch t := v.(type) {
	case exprparse.List:
		entries = []interface{}(t)
	case exprparse.Tuple:
		entries = []interface{}(t)
	default:
		entries = []interface{}{v}
	}

	var marks []Marker
	for _, e := range entries {
		switch m := e.(type) {
		case *exprparse.Call:
			kind := lastComponent(m.Name)
			if kind != "xfail" && kind != "skip" {
				continue
			}
			reason, _ := m.Values["reason"].(string)
			if reason == "" && len(m.Args) > 0 {
				if s, ok := m.Args[0].(string); ok {
					reason = s
				}
			}
			marks = append(marks, Marker{Kind: kind, Reason: reason})
		case exprparse.Opaque:
			kind := lastComponent(string(m))
			if kind == "xfail" || kind == "skip" {
				marks = append(marks, Marker{Kind: kind})
			}
		}
	}
	return marks
}

func lastComponent(dotted string) string {
	last := dotted
	for i := len(dotted) - 1; i >= 0; i-- {
		if dotted[i] == '.' {
			last = dotted[i+1:]
			break
		}
	}
	return last
}
