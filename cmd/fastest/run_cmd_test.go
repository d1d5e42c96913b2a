package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/subcommands"

	"github.com/fastestgo/fastest/internal/testutil"
)

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := testutil.WriteFiles(dir, map[string]string{name: content}); err != nil {
		t.Fatal(err)
	}
}

func TestRunCmdExecutesDiscoveredTests(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "test_sample.py", "def test_pass():\n    assert 1 == 1\n\ndef test_fail():\n    assert 1 == 2\n")

	cmd := &runCmd{root: dir, workers: 1}
	status := cmd.Execute(context.Background(), &flag.FlagSet{})

	if status != subcommands.ExitFailure {
		t.Fatalf("status = %v, want ExitFailure (one test fails)", status)
	}
}

func TestRunCmdAllPassing(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "test_sample.py", "def test_pass():\n    assert 1 == 1\n")

	cmd := &runCmd{root: dir, workers: 1}
	status := cmd.Execute(context.Background(), &flag.FlagSet{})

	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v, want ExitSuccess", status)
	}
}

func TestRunCmdWritesJSONReport(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "test_sample.py", "def test_pass():\n    assert 1 == 1\n")
	jsonPath := filepath.Join(dir, "report.json")

	cmd := &runCmd{root: dir, workers: 1, jsonPath: jsonPath}
	cmd.Execute(context.Background(), &flag.FlagSet{})

	if _, err := os.Stat(jsonPath); err != nil {
		t.Errorf("expected report at %s: %v", jsonPath, err)
	}
}

func TestListCmdPrintsDiscoveredTests(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "test_sample.py", "def test_one():\n    assert True\n")

	cmd := &listCmd{root: dir}
	status := cmd.Execute(context.Background(), &flag.FlagSet{})
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v, want ExitSuccess", status)
	}
}
