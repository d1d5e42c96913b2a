package native

import (
	"regexp"
	"strconv"
	"strings"
)

// comparisonPattern matches a single-statement body consisting of exactly
// one `assert <arith> <op> <arith>` line, where each side is a chain of
// integer literals joined by + or -. This is the "simple literal
// assertion, trivial arithmetic comparison" class spec.md §4.H.2.1
// reserves for the native tier; anything else falls back to tier 2.
var comparisonPattern = regexp.MustCompile(`^assert\s+([0-9+\-\s]+?)\s*(==|!=|<=|>=|<|>)\s*([0-9+\-\s]+?)\s*$`)

var arithTermPattern = regexp.MustCompile(`^-?\d+$`)

// Detect inspects a test function body and, if it is exactly one
// recognized literal-comparison assertion, returns the two evaluated
// operands and the comparison operator.
func Detect(body string) (a, b int64, op string, ok bool) {
	lines := nonEmptyLines(body)
	if len(lines) != 1 {
		return 0, 0, "", false
	}
	m := comparisonPattern.FindStringSubmatch(lines[0])
	if m == nil {
		return 0, 0, "", false
	}
	lhs, lok := evalArith(m[1])
	rhs, rok := evalArith(m[3])
	if !lok || !rok {
		return 0, 0, "", false
	}
	return lhs, rhs, m[2], true
}

func nonEmptyLines(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// evalArith evaluates a chain of integer literals joined by + or -,
// e.g. "2 + 2 - 1". Only this restricted grammar is supported; anything
// else returns ok=false so the caller falls back to a real interpreter.
func evalArith(expr string) (int64, bool) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, false
	}
	// Insert explicit separators so we can split while keeping sign
	// tokens: "2+2-1" -> "2 + 2 - 1".
	var sb strings.Builder
	for i, r := range expr {
		if (r == '+' || r == '-') && i > 0 {
			sb.WriteByte(' ')
			sb.WriteRune(r)
			sb.WriteByte(' ')
		} else {
			sb.WriteRune(r)
		}
	}
	fields := strings.Fields(sb.String())
	if len(fields) == 0 {
		return 0, false
	}

	var total int64
	sign := int64(1)
	haveTerm := false
	for _, f := range fields {
		switch f {
		case "+":
			sign = 1
		case "-":
			sign = -1
		default:
			if !arithTermPattern.MatchString(f) {
				return 0, false
			}
			n, err := strconv.ParseInt(f, 10, 64)
			if err != nil {
				return 0, false
			}
			total += sign * n
			sign = 1
			haveTerm = true
		}
	}
	if !haveTerm {
		return 0, false
	}
	return total, true
}
