// internal/regression/baseline.go
// Package regression compares current measurements against a stored baseline
// and classifies the outcome per workload.
package regression

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/mwiater/crossbench/internal/logging"
	"github.com/mwiater/crossbench/internal/stats"
)

// baselineVersion is bumped when the on-disk schema changes shape.
const baselineVersion = 1

// baselineSchema guards the store against hand-edits gone wrong. A file that
// fails validation is treated as absent rather than fatal, matching the
// recovery path for a corrupt store.
const baselineSchema = `{
  "type": "object",
  "required": ["version", "entries"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "fingerprint": {"type": "string"},
    "established_at": {"type": "string"},
    "entries": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["mean_ns", "sample_count"],
        "properties": {
          "mean_ns": {"type": "number", "minimum": 0},
          "sample_count": {"type": "integer", "minimum": 1}
        }
      }
    }
  }
}`

// Baseline is the persisted last-known-good performance per workload entry.
// Entries are keyed by Key(workload, language). The store is read once at
// run start and written at most once at run end; no file locking is done,
// so concurrent runs against one file are unsupported.
type Baseline struct {
	Version       int                        `json:"version"`
	Fingerprint   string                     `json:"fingerprint,omitempty"`
	EstablishedAt string                     `json:"established_at,omitempty"`
	Entries       map[string]*stats.Analysis `json:"entries"`
}

// Key builds the composite baseline entry key for a (workload, language) pair.
func Key(workloadID, language string) string {
	return workloadID + "/" + language
}

// NewBaseline returns an empty store.
func NewBaseline() *Baseline {
	return &Baseline{Version: baselineVersion, Entries: map[string]*stats.Analysis{}}
}

// LoadBaseline reads the store at path. A missing, corrupt, or schema-invalid
// file yields an empty baseline (every workload becomes Inconclusive) rather
// than an error: absent history is a normal first-run condition.
func LoadBaseline(path string) *Baseline {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.LogEvent("baseline: unreadable store %s, starting fresh: %v", path, err)
		}
		return NewBaseline()
	}

	if err := validateBaseline(raw); err != nil {
		logging.LogEvent("baseline: invalid store %s ignored: %v", path, err)
		return NewBaseline()
	}

	var baseline Baseline
	if err := json.Unmarshal(raw, &baseline); err != nil {
		logging.LogEvent("baseline: unparsable store %s ignored: %v", path, err)
		return NewBaseline()
	}
	if baseline.Entries == nil {
		baseline.Entries = map[string]*stats.Analysis{}
	}
	return &baseline
}

// Save writes the store with stable formatting so baseline diffs stay
// human-reviewable.
func (b *Baseline) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("baseline: create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("baseline: serialize: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("baseline: write %s: %w", path, err)
	}
	return nil
}

// Lookup returns the stored analysis for an entry key.
func (b *Baseline) Lookup(key string) (*stats.Analysis, bool) {
	analysis, ok := b.Entries[key]
	return analysis, ok
}

// Establish records an entry that had no prior baseline. Existing entries
// are never replaced here: overwriting on a regular run would let drift
// mask regressions. Use Reset for explicit re-establishment.
func (b *Baseline) Establish(key string, analysis *stats.Analysis) bool {
	if _, exists := b.Entries[key]; exists {
		return false
	}
	b.Entries[key] = analysis
	logging.LogEvent("baseline: established entry %s (mean=%.0fns)", key, analysis.MeanNs)
	return true
}

// Reset replaces the whole store with the given entries. Only the explicit
// UPDATE_BASELINE path calls this.
func (b *Baseline) Reset(entries map[string]*stats.Analysis, fingerprint, timestamp string) {
	b.Version = baselineVersion
	b.Fingerprint = fingerprint
	b.EstablishedAt = timestamp
	b.Entries = map[string]*stats.Analysis{}
	for key, analysis := range entries {
		b.Entries[key] = analysis
	}
	logging.LogEvent("baseline: re-established with %d entries", len(entries))
}

func validateBaseline(raw []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(baselineSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		var issues []string
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return fmt.Errorf("%s", strings.Join(issues, "; "))
	}
	return nil
}
