// internal/regression/detector.go
package regression

import (
	"sort"

	"github.com/mwiater/crossbench/internal/logging"
	"github.com/mwiater/crossbench/internal/stats"
)

// Status is the per-entry verdict of a baseline comparison.
type Status string

const (
	// StatusHealthy means the mean moved no more than the threshold, in
	// either direction.
	StatusHealthy Status = "healthy"
	// StatusWarning means the regression exceeded the threshold but stayed
	// under twice the threshold.
	StatusWarning Status = "warning"
	// StatusCritical means the regression reached twice the threshold.
	StatusCritical Status = "critical"
	// StatusInconclusive means no baseline entry existed to compare against.
	StatusInconclusive Status = "inconclusive"
)

// Verdict is the classified outcome for one workload/language entry.
type Verdict struct {
	Key              string            `json:"key"`
	WorkloadID       string            `json:"workload_id"`
	Language         string            `json:"language"`
	Status           Status            `json:"status"`
	DeltaPercent     float64           `json:"delta_percent"`
	ThresholdPercent float64           `json:"threshold_percent"`
	Improved         bool              `json:"improved"`
	Comparison       *stats.Comparison `json:"comparison,omitempty"`
}

// Sample pairs an entry key with its freshly measured analysis.
type Sample struct {
	WorkloadID string
	Language   string
	Analysis   *stats.Analysis
}

// Detector classifies current measurements against a baseline store.
// ThresholdPercent is the regression tolerance; twice the threshold marks
// the critical boundary.
type Detector struct {
	ThresholdPercent float64
}

// NewDetector returns a detector with the given threshold.
func NewDetector(thresholdPercent float64) *Detector {
	return &Detector{ThresholdPercent: thresholdPercent}
}

// Detect classifies every sample against the baseline. Verdicts come back
// sorted by entry key so report output is deterministic. Boundary handling:
// a delta exactly at the threshold is still Healthy, and a delta exactly at
// twice the threshold is already Critical.
func (d *Detector) Detect(samples []Sample, baseline *Baseline) []Verdict {
	verdicts := make([]Verdict, 0, len(samples))
	for _, sample := range samples {
		verdicts = append(verdicts, d.classify(sample, baseline))
	}
	sort.Slice(verdicts, func(i, j int) bool { return verdicts[i].Key < verdicts[j].Key })
	return verdicts
}

func (d *Detector) classify(sample Sample, baseline *Baseline) Verdict {
	key := Key(sample.WorkloadID, sample.Language)
	verdict := Verdict{
		Key:              key,
		WorkloadID:       sample.WorkloadID,
		Language:         sample.Language,
		ThresholdPercent: d.ThresholdPercent,
	}

	prior, ok := baseline.Lookup(key)
	if !ok {
		verdict.Status = StatusInconclusive
		logging.LogEvent("regression: no baseline for %s, verdict inconclusive", key)
		return verdict
	}

	comparison := stats.Compare(prior, sample.Analysis)
	verdict.Comparison = &comparison
	verdict.DeltaPercent = comparison.PercentChange

	switch {
	case verdict.DeltaPercent >= 2*d.ThresholdPercent:
		verdict.Status = StatusCritical
	case verdict.DeltaPercent > d.ThresholdPercent:
		verdict.Status = StatusWarning
	default:
		verdict.Status = StatusHealthy
		if verdict.DeltaPercent < -d.ThresholdPercent {
			verdict.Improved = true
			logging.LogEvent("regression: %s improved by %.2f%% (mean %.0fns -> %.0fns)",
				key, -verdict.DeltaPercent, comparison.BaselineMeanNs, comparison.CurrentMeanNs)
		}
	}

	if verdict.Status != StatusHealthy {
		logging.LogEvent("regression: %s %s (delta=%.2f%% threshold=%.2f%%)",
			key, verdict.Status, verdict.DeltaPercent, d.ThresholdPercent)
	}
	return verdict
}

// Reconcile applies the baseline lifecycle after a detection pass. When
// update is set the store is rebuilt from the current samples wholesale;
// otherwise only entries the detector found Inconclusive are established.
// The returned flag reports whether the store changed and needs saving.
func Reconcile(baseline *Baseline, samples []Sample, verdicts []Verdict, update bool, fingerprint, timestamp string) bool {
	if update {
		entries := make(map[string]*stats.Analysis, len(samples))
		for _, sample := range samples {
			entries[Key(sample.WorkloadID, sample.Language)] = sample.Analysis
		}
		baseline.Reset(entries, fingerprint, timestamp)
		return true
	}

	inconclusive := make(map[string]bool, len(verdicts))
	for _, verdict := range verdicts {
		if verdict.Status == StatusInconclusive {
			inconclusive[verdict.Key] = true
		}
	}

	changed := false
	for _, sample := range samples {
		key := Key(sample.WorkloadID, sample.Language)
		if inconclusive[key] && baseline.Establish(key, sample.Analysis) {
			changed = true
		}
	}
	if changed && baseline.Fingerprint == "" {
		baseline.Fingerprint = fingerprint
		baseline.EstablishedAt = timestamp
	}
	return changed
}

// HasCritical reports whether any verdict is Critical, the condition that
// flips the process exit code for CI gating.
func HasCritical(verdicts []Verdict) bool {
	for _, verdict := range verdicts {
		if verdict.Status == StatusCritical {
			return true
		}
	}
	return false
}
