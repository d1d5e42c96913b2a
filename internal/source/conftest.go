package source

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fastestgo/fastest/internal/model"
)

// ConftestChain discovers every conftest.py-equivalent file on the path
// from root down to dir (inclusive), ordered from the outermost ancestor
// to the innermost, and parses each one. Fixtures declared in a file
// closer to dir shadow same-named fixtures declared further up the chain
// (spec.md §4.C proximity rule); VisibleFixtures applies the returned
// slice in order, so a later (nearer) definition overwrites an earlier one.
func ConftestChain(root, dir string, readFile func(path string) ([]byte, error)) ([]*FileResult, error) {
	root = filepath.Clean(root)
	dir = filepath.Clean(dir)

	var dirs []string
	for d := dir; ; {
		dirs = append(dirs, d)
		if d == root || !strings.HasPrefix(d, root) {
			break
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}

	var results []*FileResult
	for i := len(dirs) - 1; i >= 0; i-- {
		path := filepath.Join(dirs[i], "conftest.py")
		src, err := readFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		fr, err := ParseFile(path, src)
		if err != nil {
			return nil, err
		}
		for _, f := range fr.Fixtures {
			f.IsConftest = true
		}
		results = append(results, fr)
	}
	return results, nil
}

// VisibleFixtures resolves the set of fixtures visible to a test declared
// in moduleDir, given the module's own FileResult and its conftest chain
// (outermost first, as returned by ConftestChain). Same-named fixtures
// are resolved by proximity: the module's own definition wins over any
// conftest, and a conftest closer to moduleDir wins over one further up.
func VisibleFixtures(module *FileResult, chain []*FileResult) map[string]*model.FixtureDefinition {
	visible := map[string]*model.FixtureDefinition{}
	for _, fr := range chain {
		for _, f := range fr.Fixtures {
			visible[f.Name] = f
		}
	}
	for _, f := range module.Fixtures {
		visible[f.Name] = f
	}
	return visible
}
