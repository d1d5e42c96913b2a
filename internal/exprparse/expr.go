// Package exprparse parses the value-literal expressions that appear in
// parametrize/fixture decorator source text (spec.md §4.B). It reuses
// go.starlark.net/syntax as the expression grammar: Starlark's literal
// grammar (ints, floats, bools, None, strings, tuples, lists, dicts) is a
// faithful superset of what spec.md requires, so there is no need for a
// second hand-rolled expression parser alongside the source parser.
package exprparse

import (
	"fmt"
	"strconv"
	"strings"

	"go.starlark.net/syntax"
)

// Opaque is an expression the grammar does not recognize. A bare
// identifier or dotted name keeps its text, and Parse returns the whole
// trimmed source as Opaque when it does not parse at all. Any other
// unrecognized expression (e.g. `x + 1`) is rendered as a position
// placeholder "<expr@COL>", not as its source text. Calls are never
// Opaque: they parse to *Call.
type Opaque string

// Tuple distinguishes a parenthesized tuple literal from a List; both
// behave the same for expansion purposes, but callers that care about
// source fidelity (e.g. param wrapper detection) can tell them apart.
type Tuple []interface{}

// List is a bracketed list literal.
type List []interface{}

// Dict is a brace dict literal, keyed by the rendered form of its key
// expressions.
type Dict map[string]interface{}

// Call is a parsed function-call expression, e.g. `param(1, 2, id="x")` or
// `pytest.mark.parametrize("x", [1, 2], ids=["a", "b"])`.
type Call struct {
	// Name is the dotted attribute chain naming the callee, e.g.
	// "pytest.mark.parametrize".
	Name string
	Args []interface{}
	// Kwargs preserves encounter order via Order; Values holds the parsed
	// value for each key.
	Order  []string
	Values map[string]interface{}
}

// Parse parses a single value-literal expression.
func Parse(src string) (interface{}, error) {
	expr, err := syntax.ParseExpr("<decorator>", src, 0)
	if err != nil {
		return Opaque(strings.TrimSpace(src)), nil
	}
	return convert(expr), nil
}

// ParseCall parses a decorator or param(...) invocation of the form
// `name.chain(args..., kw=val, ...)`.
func ParseCall(src string) (*Call, error) {
	expr, err := syntax.ParseExpr("<decorator>", strings.TrimSpace(src), 0)
	if err != nil {
		return nil, fmt.Errorf("malformed decorator: %w", err)
	}
	call, ok := expr.(*syntax.CallExpr)
	if !ok {
		return nil, fmt.Errorf("not a call expression: %s", src)
	}
	c, err := convertCall(call)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func convertCall(call *syntax.CallExpr) (*Call, error) {
	name, err := calleeName(call.Fn)
	if err != nil {
		return nil, err
	}
	c := &Call{Name: name, Values: map[string]interface{}{}}
	for _, arg := range call.Args {
		if bin, ok := arg.(*syntax.BinaryExpr); ok && bin.Op == syntax.EQ {
			key, ok := bin.X.(*syntax.Ident)
			if !ok {
				return nil, fmt.Errorf("invalid keyword argument")
			}
			c.Order = append(c.Order, key.Name)
			c.Values[key.Name] = convert(bin.Y)
			continue
		}
		c.Args = append(c.Args, convert(arg))
	}
	return c, nil
}

func calleeName(e syntax.Expr) (string, error) {
	switch n := e.(type) {
	case *syntax.Ident:
		return n.Name, nil
	case *syntax.DotExpr:
		base, err := calleeName(n.X)
		if err != nil {
			return "", err
		}
		return base + "." + n.Name, nil
	default:
		return "", fmt.Errorf("unsupported callee expression")
	}
}

func convert(e syntax.Expr) interface{} {
	switch n := e.(type) {
	case *syntax.Literal:
		switch n.Token {
		case syntax.INT:
			if i, ok := n.Value.(int64); ok {
				return i
			}
			i, _ := strconv.ParseInt(n.Raw, 0, 64)
			return i
		case syntax.FLOAT:
			f, _ := n.Value.(float64)
			return f
		case syntax.STRING:
			s, _ := n.Value.(string)
			return s
		default:
			return Opaque(n.Raw)
		}
	case *syntax.Ident:
		switch n.Name {
		case "None":
			return nil
		case "True":
			return true
		case "False":
			return false
		default:
			return Opaque(n.Name)
		}
	case *syntax.UnaryExpr:
		if n.Op == syntax.MINUS {
			switch v := convert(n.X).(type) {
			case int64:
				return -v
			case float64:
				return -v
			}
		}
		return Opaque(renderOpaque(e))
	case *syntax.TupleExpr:
		t := make(Tuple, len(n.List))
		for i, el := range n.List {
			t[i] = convert(el)
		}
		return t
	case *syntax.ListExpr:
		l := make(List, len(n.List))
		for i, el := range n.List {
			l[i] = convert(el)
		}
		return l
	case *syntax.DictExpr:
		d := Dict{}
		for _, entry := range n.List {
			de := entry.(*syntax.DictEntry)
			d[RenderKey(convert(de.Key))] = convert(de.Value)
		}
		return d
	case *syntax.ParenExpr:
		return convert(n.X)
	case *syntax.DotExpr:
		if name, err := calleeName(n); err == nil {
			return Opaque(name)
		}
		return Opaque(renderOpaque(e))
	case *syntax.CallExpr:
		c, err := convertCall(n)
		if err != nil {
			return Opaque(renderOpaque(e))
		}
		return c
	default:
		return Opaque(renderOpaque(e))
	}
}

func renderOpaque(e syntax.Expr) string {
	start, _ := e.Span()
	return fmt.Sprintf("<expr@%d>", start.Col)
}

// RenderKey renders a parsed value into a dict key string.
func RenderKey(v interface{}) string {
	switch k := v.(type) {
	case string:
		return k
	case int64:
		return strconv.FormatInt(k, 10)
	default:
		return fmt.Sprint(k)
	}
}
