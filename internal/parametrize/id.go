package parametrize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/fastestgo/fastest/internal/exprparse"
)

// renderValue renders a single parameter value into the text pytest's
// deterministic id generation would produce, before sanitization.
func renderValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case string:
		return t
	case exprparse.Opaque:
		return string(t)
	case exprparse.Tuple:
		return renderSeq([]interface{}(t))
	case exprparse.List:
		return renderSeq([]interface{}(t))
	case exprparse.Dict:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			parts = append(parts, k+renderValue(t[k]))
		}
		return strings.Join(parts, "")
	default:
		return fmt.Sprint(v)
	}
}

func renderSeq(vs []interface{}) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = renderValue(v)
	}
	return strings.Join(parts, "-")
}

// sanitize maps a rendered value to the bracket-safe form spec.md §3
// requires: unicode alphanumerics preserved, everything else mapped to
// '_'.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// RowID computes the deterministic id for one parametrize row: each value
// is independently sanitized, then joined with '-'.
func RowID(values []interface{}) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = sanitize(renderValue(v))
	}
	return strings.Join(parts, "-")
}
