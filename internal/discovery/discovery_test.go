package discovery

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/fastestgo/fastest/internal/testutil"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir, base := filepath.Split(path)
	if err := testutil.WriteFiles(dir, map[string]string{base: content}); err != nil {
		t.Fatal(err)
	}
}

func TestIsTestFile(t *testing.T) {
	cases := map[string]bool{
		"test_foo.py":  true,
		"foo_test.py":  true,
		"foo.py":       false,
		"test_foo.txt": false,
	}
	for name, want := range cases {
		if got := IsTestFile(name); got != want {
			t.Errorf("IsTestFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestDiscoverFindsTestsAndBuildsRegistry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "conftest.py"), "@pytest.fixture\ndef db():\n    return 1\n")
	writeFile(t, filepath.Join(dir, "test_sample.py"), "def test_one():\n    assert 1 == 1\n\ndef test_two():\n    assert db == 1\n")

	inv, err := Discover(Options{Roots: []string{dir}})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(inv.Items) != 2 {
		t.Fatalf("Items = %d, want 2", len(inv.Items))
	}
	if _, ok := inv.Registry.Lookup(filepath.Join(dir, "test_sample.py"), "db"); !ok {
		t.Error("expected db fixture visible via conftest chain")
	}
}

func TestDiscoverSkipsUnparsableFilesWithoutFailing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "test_bad.py"), "def test_one(:\n  pass\n")

	inv, err := Discover(Options{Roots: []string{dir}})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	_ = inv
}

func TestDiscoverSinceFiltersOlderFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "test_old.py"), "def test_old():\n    assert True\n")

	cutoff := time.Now().Add(time.Hour)
	inv, err := Discover(Options{Roots: []string{dir}, Since: cutoff})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(inv.Items) != 0 {
		t.Errorf("Items = %d, want 0 (all files older than cutoff)", len(inv.Items))
	}
}
