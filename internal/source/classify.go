package source

import (
	"strings"

	"github.com/fastestgo/fastest/internal/errors"
	"github.com/fastestgo/fastest/internal/exprparse"
	"github.com/fastestgo/fastest/internal/model"
)

// classify decides what a parsed def is (fixture, test, legacy hook, or an
// uninteresting helper) and records it on p.result.
func (p *parser) classify(name, class string, params []string, decorators []string, async bool, line int, body string) {
	if fixtureDecorator(decorators) != "" {
		p.addFixture(name, class, params, decorators, async, line, body)
		return
	}

	if isTestName(name, class) {
		p.addTest(name, class, params, decorators, async, line, body)
		return
	}

	if legacyHookNames[name] {
		p.addHook(name, class)
	}
}

// fixtureDecorator returns the raw decorator text that declares a fixture
// (spec.md §4.A: "decorator name ending in fixture on any attribute
// chain"), or "" if none of decorators does.
func fixtureDecorator(decorators []string) string {
	for _, d := range decorators {
		name := strings.TrimSpace(d)
		if call, err := exprparse.ParseCall(d); err == nil {
			name = call.Name
		}
		if strings.HasSuffix(name, "fixture") {
			return d
		}
	}
	return ""
}

func isTestName(name, class string) bool {
	if class == "" {
		return name == "test" || strings.HasPrefix(name, "test_")
	}
	if !strings.HasPrefix(class, "Test") {
		return false
	}
	if legacyHookNames[name] {
		return false
	}
	return name == "test" || strings.HasPrefix(name, "test_")
}

func (p *parser) addFixture(name, class string, params []string, decorators []string, async bool, line int, body string) {
	def := &model.FixtureDefinition{
		Name:      name,
		Module:    p.path,
		ModuleDir: dirOf(p.path),
		Scope:     model.ScopeFunction,
		Line:      line,
		Async:     async,
		Body:      body,
		Yields:    strings.Contains(body, "yield"),
	}
	def.Deps = filterSelf(params, class)

	raw := fixtureDecorator(decorators)
	if call, err := exprparse.ParseCall(raw); err == nil {
		if s, ok := call.Values["scope"].(string); ok {
			def.Scope = parseScope(s)
		}
		if b, ok := call.Values["autouse"].(bool); ok {
			def.Autouse = b
		}
		if ps, ok := call.Values["params"]; ok {
			def.Params = flattenValues(ps)
		}
		if name2, ok := call.Values["name"].(string); ok && name2 != "" {
			def.Name = name2
		}
	}

	for _, existing := range p.result.Fixtures {
		if existing.Name == def.Name {
			p.err = errors.NewDuplicateFixture(p.path, def.Name)
			return
		}
	}
	p.result.Fixtures = append(p.result.Fixtures, def)
}

func (p *parser) addTest(name, class string, params []string, decorators []string, async bool, line int, body string) {
	item := &model.TestItem{
		Func:       name,
		Path:       p.path,
		Class:      class,
		Async:      async,
		Decorators: append([]string(nil), decorators...),
		Line:       line,
		Body:       body,
		FuncParams: filterSelf(params, class),
		Params:     map[string]interface{}{},
		Indirect:   map[string]bool{},
	}
	if class != "" {
		item.ID = p.path + "::" + class + "::" + name
	} else {
		item.ID = p.path + "::" + name
	}
	p.result.Tests = append(p.result.Tests, item)
}

func (p *parser) addHook(name, class string) {
	switch name {
	case "setup_module":
		p.result.ModuleSetup = name
	case "teardown_module":
		p.result.ModuleTeardown = name
	case "setup_function":
		p.result.FunctionSetup = name
	case "teardown_function":
		p.result.FunctionTeardown = name
	case "setup_class", "setUpClass":
		p.classHooks(class).SetupClass = name
	case "teardown_class", "tearDownClass":
		p.classHooks(class).TeardownClass = name
	case "setUp", "setup_method":
		p.classHooks(class).SetupMethod = name
	case "tearDown", "teardown_method":
		p.classHooks(class).TeardownMethod = name
	}
}

func (p *parser) classHooks(class string) *ClassHooks {
	h, ok := p.result.ClassHooks[class]
	if !ok {
		h = &ClassHooks{}
		p.result.ClassHooks[class] = h
	}
	return h
}

func parseScope(s string) model.Scope {
	switch s {
	case "class":
		return model.ScopeClass
	case "module":
		return model.ScopeModule
	case "package":
		return model.ScopePackage
	case "session":
		return model.ScopeSession
	default:
		return model.ScopeFunction
	}
}

func flattenValues(v interface{}) []interface{} {
	switch t := v.(type) {
	case exprparse.List:
		return []interface{}(t)
	case exprparse.Tuple:
		return []interface{}(t)
	default:
		return []interface{}{v}
	}
}

func filterSelf(params []string, class string) []string {
	var out []string
	for _, p := range params {
		if class != "" && (p == "self" || p == "cls") {
			continue
		}
		out = append(out, p)
	}
	return out
}

func dirOf(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return "."
	}
	return path[:idx]
}
