// internal/report/report.go
// Package report renders benchmark results as machine-readable JSON files
// and a consolidated human-readable Markdown summary.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mwiater/crossbench/internal/benchmark"
	"github.com/mwiater/crossbench/internal/logging"
	"github.com/mwiater/crossbench/internal/regression"
	"github.com/mwiater/crossbench/internal/sysinfo"
	"github.com/mwiater/crossbench/internal/util"
)

// timestampLayout keeps report filenames sortable by generation time.
const timestampLayout = "20060102-150405"

// Report bundles everything one benchmark run produced for one workload.
// Results keep the caller's input order; verdicts are pre-sorted by the
// detector. Rendering the same Report twice yields identical bytes.
type Report struct {
	Workload    string               `json:"workload"`
	Description string               `json:"description,omitempty"`
	GeneratedAt string               `json:"generated_at"`
	System      sysinfo.Info         `json:"system"`
	Results     []benchmark.Result   `json:"results"`
	Verdicts    []regression.Verdict `json:"verdicts,omitempty"`
}

// Writer persists reports under a directory. The clock is a field so tests
// can pin filenames.
type Writer struct {
	Dir string
	Now func() time.Time
}

// NewWriter returns a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Now: time.Now}
}

// Write persists one JSON file per language result plus the consolidated
// Markdown summary, and returns the paths written. Individual write failures
// are logged and skipped: a report that cannot be written must not discard
// the run's remaining output.
func (w *Writer) Write(report *Report) []string {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		logging.LogEvent("report: create directory %s: %v", w.Dir, err)
		return nil
	}

	stamp := w.now().UTC().Format(timestampLayout)
	var written []string

	for i := range report.Results {
		result := &report.Results[i]
		name := fmt.Sprintf("%s-%s-%s.json", util.Slugify(report.Workload), util.Slugify(result.Language), stamp)
		path := filepath.Join(w.Dir, name)
		if err := writeJSON(path, result); err != nil {
			logging.LogEvent("report: %v", err)
			continue
		}
		written = append(written, path)
	}

	mdPath := filepath.Join(w.Dir, fmt.Sprintf("%s-%s.md", util.Slugify(report.Workload), stamp))
	if err := util.WriteFile(mdPath, RenderMarkdown(report)); err != nil {
		logging.LogEvent("report: markdown: %v", err)
	} else {
		written = append(written, mdPath)
	}

	return written
}

func (w *Writer) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// MarshalReport renders a report deterministically. Struct field order fixes
// key order; the result list is already in input order.
func MarshalReport(report *Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("report: serialize: %w", err)
	}
	return append(data, '\n'), nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize %s: %w", path, err)
	}
	if err := util.WriteFile(path, append(data, '\n')); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
