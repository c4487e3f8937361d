// internal/benchmark/benchmark.go
// Package benchmark orchestrates workload execution across language targets:
// build, warm up, measure, and package results with optional memory and
// binary-size attachments.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/mwiater/crossbench/internal/isolation"
	"github.com/mwiater/crossbench/internal/logging"
	"github.com/mwiater/crossbench/internal/profiling"
	"github.com/mwiater/crossbench/internal/stats"
	"github.com/mwiater/crossbench/internal/sysinfo"
	"github.com/mwiater/crossbench/internal/util"
)

// Seams for tests.
var (
	profileMemory = func(ctx context.Context, profiler *profiling.MemoryProfiler, dir string, argv []string) (*profiling.MemoryProfile, error) {
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Dir = dir
		return profiler.Profile(ctx, cmd)
	}
	analyzeBinary = profiling.AnalyzeBinary
)

// ErrAllTargetsFailed is returned when no language produced a measurement.
var ErrAllTargetsFailed = errors.New("benchmark: all language targets failed")

// Runner executes one workload across its language targets, sequentially:
// isolation state is host-wide, so targets never run concurrently.
type Runner struct {
	Iterations       int
	WarmupIterations int
	Timeout          time.Duration
	Analyzer         *stats.Analyzer
	MemoryProfiling  bool
	BinaryAnalysis   bool
	MemoryProfiler   *profiling.MemoryProfiler
	Isolation        isolation.Snapshot
	SystemInfo       sysinfo.Info
	Progress         ProgressFunc
}

// Run measures every target in order. Results come back in target order and
// include explicit failed entries; the error is non-nil only when no target
// produced a measurement. A cancelled context stops the run early but keeps
// whatever completed.
func (r *Runner) Run(ctx context.Context, workload *Workload, targets []Target) ([]Result, error) {
	results := make([]Result, 0, len(targets))

	for _, target := range targets {
		if ctx.Err() != nil {
			logging.LogRun("abort", workload.ID, target.Name, "run cancelled before target started")
			break
		}
		results = append(results, r.runTarget(ctx, workload, target))
	}

	measured := 0
	for _, result := range results {
		if !result.Failed {
			measured++
		}
	}
	if measured == 0 {
		return results, ErrAllTargetsFailed
	}
	return results, nil
}

// runTarget performs the build / warm-up / measure / attach sequence for one
// language. Every failure is contained here: a failing target yields a
// Result with Failed set and never aborts its siblings.
func (r *Runner) runTarget(ctx context.Context, workload *Workload, target Target) Result {
	result := Result{
		Language:   target.Name,
		WorkloadID: workload.ID,
		Isolation:  r.Isolation,
		SystemInfo: r.SystemInfo,
		Config: RunConfig{
			Iterations:       r.Iterations,
			WarmupIterations: r.WarmupIterations,
			TimeoutSeconds:   r.Timeout.Seconds(),
		},
	}

	if len(target.Build) > 0 {
		r.emit(ProgressEvent{Language: target.Name, Phase: "build"})
		inv := invoke(ctx, workload.Dir, target.Build, r.Timeout)
		if inv.err != nil || inv.exitCode != 0 {
			result.Failed = true
			result.FailureReason = fmt.Sprintf("build failed (exit %d): %s", inv.exitCode, util.FirstLine(inv.stderr))
			logging.LogRun("build", workload.ID, target.Name,
				fmt.Sprintf("command=%v exit=%d stderr=%s", target.Build, inv.exitCode, util.TruncateRunes(inv.stderr, 500)))
			r.emit(ProgressEvent{Language: target.Name, Phase: "failed"})
			return result
		}
		logging.LogRun("build", workload.ID, target.Name, fmt.Sprintf("ok in %s", inv.duration))
	}

	// Warm-up iterations strictly precede measurement and are discarded.
	for i := 0; i < r.WarmupIterations; i++ {
		if ctx.Err() != nil {
			break
		}
		r.emit(ProgressEvent{Language: target.Name, Phase: "warmup", Iteration: i + 1, Total: r.WarmupIterations})
		inv := invoke(ctx, workload.Dir, target.Run, r.Timeout)
		if inv.err != nil || inv.exitCode != 0 {
			logging.LogRun("warmup", workload.ID, target.Name,
				fmt.Sprintf("iteration %d failed (exit %d): %s", i+1, inv.exitCode, util.FirstLine(inv.stderr)))
		}
	}

	samples := make([]time.Duration, 0, r.Iterations)
	for i := 0; i < r.Iterations; i++ {
		if ctx.Err() != nil {
			logging.LogRun("measure", workload.ID, target.Name,
				fmt.Sprintf("cancelled after %d of %d iterations", i, r.Iterations))
			break
		}
		r.emit(ProgressEvent{Language: target.Name, Phase: "measure", Iteration: i + 1, Total: r.Iterations})
		inv := invoke(ctx, workload.Dir, target.Run, r.Timeout)
		if inv.err != nil || inv.exitCode != 0 {
			// A timed-out or failed iteration contributes no sample.
			result.FailedIterations++
			logging.LogRun("measure", workload.ID, target.Name,
				fmt.Sprintf("iteration %d failed (exit=%d timeout=%v): command=%v stderr=%s",
					i+1, inv.exitCode, inv.timedOut, target.Run, util.TruncateRunes(inv.stderr, 500)))
			continue
		}
		samples = append(samples, inv.duration)
	}

	analysis, err := r.analyzer().Analyze(samples)
	if err != nil {
		result.Failed = true
		result.FailureReason = fmt.Sprintf("%d of %d iterations produced samples: %v", len(samples), r.Iterations, err)
		logging.LogRun("analyze", workload.ID, target.Name, result.FailureReason)
		r.emit(ProgressEvent{Language: target.Name, Phase: "failed"})
		return result
	}
	result.Statistics = analysis

	// Attachments are best-effort and run as separate passes so their
	// overhead cannot contaminate the timing samples above.
	if r.MemoryProfiling {
		r.emit(ProgressEvent{Language: target.Name, Phase: "memory"})
		// The profiling pass re-runs the target, so it gets the same
		// per-invocation timeout as every other subprocess.
		memCtx, cancel := r.boundedContext(ctx)
		profile, err := profileMemory(memCtx, r.memoryProfiler(), workload.Dir, target.Run)
		cancel()
		if err != nil {
			logging.LogRun("memory", workload.ID, target.Name, fmt.Sprintf("profiling skipped: %v", err))
		} else {
			result.MemoryProfile = profile
		}
	}
	if r.BinaryAnalysis && target.Artifact != "" {
		r.emit(ProgressEvent{Language: target.Name, Phase: "binary"})
		analysis, err := analyzeBinary(filepath.Join(workload.Dir, target.Artifact))
		if err != nil {
			logging.LogRun("binary", workload.ID, target.Name, fmt.Sprintf("analysis skipped: %v", err))
		} else {
			result.BinaryAnalysis = analysis
		}
	}

	logging.LogRun("done", workload.ID, target.Name,
		fmt.Sprintf("mean=%s samples=%d failed_iterations=%d",
			time.Duration(result.Statistics.MeanNs), result.Statistics.SampleCount, result.FailedIterations))
	r.emit(ProgressEvent{Language: target.Name, Phase: "done"})
	return result
}

func (r *Runner) analyzer() *stats.Analyzer {
	if r.Analyzer != nil {
		return r.Analyzer
	}
	return stats.NewAnalyzer()
}

func (r *Runner) boundedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.Timeout > 0 {
		return context.WithTimeout(ctx, r.Timeout)
	}
	return context.WithCancel(ctx)
}

func (r *Runner) memoryProfiler() *profiling.MemoryProfiler {
	if r.MemoryProfiler != nil {
		return r.MemoryProfiler
	}
	return profiling.NewMemoryProfiler()
}

func (r *Runner) emit(event ProgressEvent) {
	if r.Progress != nil {
		r.Progress(event)
	}
}
