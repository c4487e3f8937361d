package benchmark

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDescriptor(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DescriptorName), []byte(contents), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	return dir
}

const validDescriptor = `{
	"id": "fibonacci",
	"description": "naive recursive fibonacci",
	"input": "30",
	"targets": [
		{"name": "rust", "build": ["cargo", "build", "--release"], "run": ["./target/release/fib", "{input}"], "artifact": "target/release/fib"},
		{"name": "python", "run": ["python3", "fib.py", "{input}"]}
	]
}`

func TestLoadWorkload(t *testing.T) {
	dir := writeDescriptor(t, validDescriptor)

	workload, err := LoadWorkload(dir, "")
	if err != nil {
		t.Fatalf("LoadWorkload: %v", err)
	}
	if workload.ID != "fibonacci" {
		t.Fatalf("id: %q", workload.ID)
	}
	if workload.Dir != dir {
		t.Fatalf("dir: %q", workload.Dir)
	}
	if len(workload.Targets) != 2 {
		t.Fatalf("targets: %d", len(workload.Targets))
	}
	// {input} resolved against the descriptor's default input.
	if got := workload.Targets[0].Run[1]; got != "30" {
		t.Fatalf("input substitution: %q", got)
	}
}

func TestLoadWorkloadInputOverride(t *testing.T) {
	dir := writeDescriptor(t, validDescriptor)

	workload, err := LoadWorkload(dir, "35")
	if err != nil {
		t.Fatalf("LoadWorkload: %v", err)
	}
	if got := workload.Targets[1].Run[2]; got != "35" {
		t.Fatalf("input override: %q", got)
	}
}

func TestLoadWorkloadRejectsInvalidDescriptor(t *testing.T) {
	cases := map[string]string{
		"missing id":      `{"targets": [{"name": "rust", "run": ["./fib"]}]}`,
		"no targets":      `{"id": "x", "targets": []}`,
		"target sans run": `{"id": "x", "targets": [{"name": "rust"}]}`,
	}
	for name, contents := range cases {
		dir := writeDescriptor(t, contents)
		if _, err := LoadWorkload(dir, ""); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadWorkloadMissingFile(t *testing.T) {
	if _, err := LoadWorkload(t.TempDir(), ""); err == nil {
		t.Fatal("expected error for missing descriptor")
	}
}

func TestSelectTargetsPreservesRequestOrder(t *testing.T) {
	workload := &Workload{
		ID: "quicksort",
		Targets: []Target{
			{Name: "rust", Run: []string{"./qs"}},
			{Name: "python", Run: []string{"python3", "qs.py"}},
			{Name: "go", Run: []string{"./qs-go"}},
		},
	}

	selected, err := workload.SelectTargets([]string{"go", "rust"})
	if err != nil {
		t.Fatalf("SelectTargets: %v", err)
	}
	if len(selected) != 2 || selected[0].Name != "go" || selected[1].Name != "rust" {
		t.Fatalf("order: %+v", selected)
	}

	all, err := workload.SelectTargets(nil)
	if err != nil {
		t.Fatalf("SelectTargets all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all targets: %d", len(all))
	}
}

func TestSelectTargetsUnknownLanguage(t *testing.T) {
	workload := &Workload{ID: "fib", Targets: []Target{{Name: "rust", Run: []string{"./fib"}}}}
	_, err := workload.SelectTargets([]string{"cobol"})
	if err == nil || !strings.Contains(err.Error(), "cobol") {
		t.Fatalf("expected unknown language error, got %v", err)
	}
}
