package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"fibonacci":      "fibonacci",
		"Rust:Release":   "rust_release",
		"  Quick Sort  ": "quick-sort",
		"bench--run!!":   "bench-run",
	}
	for input, expected := range cases {
		if got := Slugify(input); got != expected {
			t.Fatalf("Slugify(%q) = %q, want %q", input, got, expected)
		}
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := WriteFile(path, []byte("{}")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "{}" {
		t.Fatalf("unexpected contents: %q", data)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("short", 10); got != "short" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := TruncateRunes("0123456789abc", 10); got != "0123456789…" {
		t.Fatalf("truncated: %q", got)
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("  error: boom  \nstack trace"); got != "error: boom" {
		t.Fatalf("FirstLine: %q", got)
	}
}
