// internal/benchmark/types.go
package benchmark

import (
	"time"

	"github.com/mwiater/crossbench/internal/isolation"
	"github.com/mwiater/crossbench/internal/profiling"
	"github.com/mwiater/crossbench/internal/stats"
	"github.com/mwiater/crossbench/internal/sysinfo"
)

// Target describes one language implementation of a workload. Languages are
// data, not code: every target is dispatched through the same subprocess
// invocation path.
type Target struct {
	Name     string   `json:"name"`
	Build    []string `json:"build,omitempty"`
	Run      []string `json:"run"`
	Artifact string   `json:"artifact,omitempty"`
}

// Workload is a benchmark task resolved from a workload descriptor file.
type Workload struct {
	ID          string   `json:"id"`
	Description string   `json:"description,omitempty"`
	Input       string   `json:"input,omitempty"`
	Targets     []Target `json:"targets"`

	// Dir is the directory the descriptor was loaded from; build and run
	// commands execute relative to it.
	Dir string `json:"-"`
}

// RunConfig records the execution parameters a result was measured under.
type RunConfig struct {
	Iterations       int     `json:"iterations"`
	WarmupIterations int     `json:"warmup_iterations"`
	TimeoutSeconds   float64 `json:"timeout_seconds"`
}

// Result is the unit of record for one (workload, language) measurement.
// Immutable after creation. Failed entries stay in the result list so the
// report can show an explicit failed row instead of a silent omission.
type Result struct {
	Language         string                     `json:"language"`
	WorkloadID       string                     `json:"workload_id"`
	Statistics       *stats.Analysis            `json:"statistics,omitempty"`
	Isolation        isolation.Snapshot         `json:"isolation"`
	MemoryProfile    *profiling.MemoryProfile   `json:"memory_profile,omitempty"`
	BinaryAnalysis   *profiling.BinaryAnalysis  `json:"binary_analysis,omitempty"`
	Config           RunConfig                  `json:"config"`
	SystemInfo       sysinfo.Info               `json:"system_info"`
	FailedIterations int                        `json:"failed_iterations"`
	Failed           bool                       `json:"failed"`
	FailureReason    string                     `json:"failure_reason,omitempty"`
}

// ProgressEvent feeds the progress view (or the log) during a run.
type ProgressEvent struct {
	Language  string
	Phase     string // "build", "warmup", "measure", "memory", "binary", "done", "failed"
	Iteration int
	Total     int
}

// ProgressFunc receives progress events; nil disables reporting.
type ProgressFunc func(ProgressEvent)

// invocation is the observable outcome of one subprocess run.
type invocation struct {
	stdout   string
	stderr   string
	exitCode int
	duration time.Duration
	err      error
	timedOut bool
}
