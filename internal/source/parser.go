// Package source statically parses pytest-flavored test source files into
// the discovery model (spec.md §4.A). It never executes source; it only
// enumerates structure using a lightweight concrete-syntax scanner that
// tracks indentation, string literals and paren depth well enough to
// recover function/class boundaries, decorator text and parameter lists
// verbatim.
package source

import (
	"strings"

	"github.com/fastestgo/fastest/internal/errors"
	"github.com/fastestgo/fastest/internal/model"
)

// ClassHooks records the unittest-style setUp/tearDown method names found
// on a single class, keyed by method kind.
type ClassHooks struct {
	SetupClass      string
	TeardownClass   string
	SetupMethod     string // setUp
	TeardownMethod  string // tearDown
}

// FileResult is everything ParseFile recovers from one source file.
type FileResult struct {
	Path string

	Fixtures []*model.FixtureDefinition
	Tests    []*model.TestItem

	ModuleSetup    string // setup_module function name, if present
	ModuleTeardown string

	// ClassHooks maps class name -> its hooks.
	ClassHooks map[string]*ClassHooks

	// FunctionSetup/FunctionTeardown are module-level setup_function /
	// teardown_function hook names, applied before/after every function
	// in the module.
	FunctionSetup    string
	FunctionTeardown string
}

var legacyHookNames = map[string]bool{
	"setup_module": true, "teardown_module": true,
	"setup_function": true, "teardown_function": true,
	"setup_class": true, "teardown_class": true, "setUpClass": true, "tearDownClass": true,
	"setUp": true, "tearDown": true,
	"setup_method": true, "teardown_method": true,
}

// ParseFile parses the test source at path.
func ParseFile(path string, src []byte) (*FileResult, error) {
	lines := splitLines(string(src))
	p := &parser{path: path, lines: lines, result: &FileResult{Path: path, ClassHooks: map[string]*ClassHooks{}}}
	return p.run()
}

type frame struct {
	indent int
	kind   string // "class" or "def"
	name   string
}

type parser struct {
	path   string
	lines  []string
	result *FileResult

	stack []frame

	pendingDecorators []string
	pendingLine       int

	// err is set by classify (via addFixture) on a same-module fixture
	// name collision (spec.md §4.C); run() checks it after every def and
	// returns it instead of continuing to parse.
	err error
}

func (p *parser) run() (*FileResult, error) {
	i := 0
	for i < len(p.lines) {
		raw := p.lines[i]
		trimmed := strings.TrimLeft(raw, " \t")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			i++
			continue
		}
		indent := len(raw) - len(trimmed)

		// Pop frames closed by this line's dedent.
		for len(p.stack) > 0 && indent <= p.stack[len(p.stack)-1].indent {
			p.stack = p.stack[:len(p.stack)-1]
		}

		switch {
		case strings.HasPrefix(trimmed, "@"):
			text, end, err := p.readBlock(i)
			if err != nil {
				return nil, err
			}
			decText := strings.TrimPrefix(strings.TrimSpace(text), "@")
			p.pendingDecorators = append(p.pendingDecorators, strings.TrimSpace(decText))
			if len(p.pendingDecorators) == 1 {
				p.pendingLine = i + 1
			}
			i = end
			continue

		case strings.HasPrefix(trimmed, "class "):
			name, ok := parseClassName(trimmed)
			if !ok {
				return nil, errors.NewParseError(p.path, lineOffset(p.lines, i), "malformed class definition")
			}
			p.stack = append(p.stack, frame{indent: indent, kind: "class", name: name})
			if _, ok := p.result.ClassHooks[name]; !ok {
				p.result.ClassHooks[name] = &ClassHooks{}
			}
			p.pendingDecorators = nil
			i++
			continue

		case strings.HasPrefix(trimmed, "def ") || strings.HasPrefix(trimmed, "async def "):
			text, end, err := p.readBlock(i)
			if err != nil {
				return nil, err
			}
			name, params, ok := parseDefSignature(text)
			if !ok {
				return nil, errors.NewParseError(p.path, lineOffset(p.lines, i), "malformed function signature")
			}
			async := strings.HasPrefix(trimmed, "async ")
			decorators := p.pendingDecorators
			declLine := i + 1
			if len(decorators) > 0 {
				declLine = p.pendingLine
			}
			p.pendingDecorators = nil

			class := p.enclosingClass()
			body := p.readBody(end, indent)

			p.classify(name, class, params, decorators, async, declLine, body)
			if p.err != nil {
				return nil, p.err
			}

			p.stack = append(p.stack, frame{indent: indent, kind: "def", name: name})
			i = end
			continue

		default:
			p.pendingDecorators = nil
			i++
		}
	}
	return p.result, nil
}

func (p *parser) enclosingClass() string {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i].kind == "class" {
			return p.stack[i].name
		}
	}
	return ""
}

// readBlock reads a (possibly multi-line) decorator or def statement
// starting at line i, returning its joined text and the index of the
// first line after it.
func (p *parser) readBlock(i int) (string, int, error) {
	depth := 0
	var b strings.Builder
	for j := i; j < len(p.lines); j++ {
		line := stripComment(p.lines[j])
		b.WriteString(line)
		depth += parenDelta(line)
		if depth < 0 {
			return "", 0, errors.NewParseError(p.path, lineOffset(p.lines, j), "unbalanced parentheses")
		}
		if depth == 0 {
			trimmed := strings.TrimRight(line, " \t")
			if !strings.HasSuffix(trimmed, "\\") {
				return b.String(), j + 1, nil
			}
		}
		b.WriteByte(' ')
	}
	if depth != 0 {
		return "", 0, errors.NewParseError(p.path, lineOffset(p.lines, len(p.lines)-1), "unterminated block: unbalanced parentheses")
	}
	return b.String(), len(p.lines), nil
}

// readBody returns the verbatim source text of the block body starting
// right after the header line (index bodyStart) until dedent to
// headerIndent or less.
func (p *parser) readBody(bodyStart, headerIndent int) string {
	var b strings.Builder
	for j := bodyStart; j < len(p.lines); j++ {
		line := p.lines[j]
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			b.WriteString(line)
			b.WriteByte('\n')
			continue
		}
		indent := len(line) - len(trimmed)
		if indent <= headerIndent {
			break
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func lineOffset(lines []string, idx int) int {
	off := 0
	for i := 0; i < idx && i < len(lines); i++ {
		off += len(lines[i]) + 1
	}
	return off
}

func splitLines(s string) []string {
	return strings.Split(s, "\n")
}
