package benchmark

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mwiater/crossbench/internal/profiling"
	"github.com/mwiater/crossbench/internal/stats"
)

// stubInvoke replaces the subprocess seam for the duration of a test.
func stubInvoke(t *testing.T, fn func(ctx context.Context, dir string, argv []string, timeout time.Duration) invocation) {
	t.Helper()
	prev := invoke
	invoke = fn
	t.Cleanup(func() { invoke = prev })
}

func stubAttachments(t *testing.T) {
	t.Helper()
	prevMem, prevBin := profileMemory, analyzeBinary
	profileMemory = func(ctx context.Context, profiler *profiling.MemoryProfiler, dir string, argv []string) (*profiling.MemoryProfile, error) {
		return &profiling.MemoryProfile{PeakRSSBytes: 4096, SampleCount: 3}, nil
	}
	analyzeBinary = func(path string) (*profiling.BinaryAnalysis, error) {
		return &profiling.BinaryAnalysis{Path: path, TotalSizeBytes: 1234, Format: "elf"}, nil
	}
	t.Cleanup(func() { profileMemory, analyzeBinary = prevMem, prevBin })
}

func testRunner(iterations, warmup int) *Runner {
	return &Runner{
		Iterations:       iterations,
		WarmupIterations: warmup,
		Timeout:          time.Second,
		Analyzer:         &stats.Analyzer{MinSamples: 2},
	}
}

func testWorkload(targets ...Target) *Workload {
	return &Workload{ID: "fib", Dir: "/tmp/fib", Targets: targets}
}

func TestRunEmitsResultsInInputOrder(t *testing.T) {
	stubAttachments(t)
	stubInvoke(t, func(ctx context.Context, dir string, argv []string, timeout time.Duration) invocation {
		d := time.Millisecond
		if argv[0] == "slow" {
			d = 10 * time.Millisecond
		}
		return invocation{duration: d}
	})

	targets := []Target{
		{Name: "slow-lang", Run: []string{"slow"}},
		{Name: "fast-lang", Run: []string{"fast"}},
	}
	results, err := testRunner(3, 0).Run(context.Background(), testWorkload(targets...), targets)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results: %d", len(results))
	}
	if results[0].Language != "slow-lang" || results[1].Language != "fast-lang" {
		t.Fatalf("order: %s, %s", results[0].Language, results[1].Language)
	}
}

func TestRunIsolatesPerLanguageFailure(t *testing.T) {
	stubAttachments(t)
	stubInvoke(t, func(ctx context.Context, dir string, argv []string, timeout time.Duration) invocation {
		if argv[0] == "broken" {
			return invocation{exitCode: 1, stderr: "segfault\n", err: errors.New("exit status 1")}
		}
		return invocation{duration: time.Millisecond}
	})

	targets := []Target{
		{Name: "broken-lang", Run: []string{"broken"}},
		{Name: "good-lang", Run: []string{"good"}},
	}
	results, err := testRunner(3, 0).Run(context.Background(), testWorkload(targets...), targets)
	if err != nil {
		t.Fatalf("one healthy target should not error the batch: %v", err)
	}
	if !results[0].Failed {
		t.Fatal("broken target should be marked failed")
	}
	if !strings.Contains(results[0].FailureReason, "0 of 3 iterations") {
		t.Fatalf("failure reason: %q", results[0].FailureReason)
	}
	if results[1].Failed {
		t.Fatalf("healthy target marked failed: %+v", results[1])
	}
	if results[1].Statistics == nil || results[1].Statistics.SampleCount != 3 {
		t.Fatalf("healthy target statistics: %+v", results[1].Statistics)
	}
}

func TestRunAllTargetsFailed(t *testing.T) {
	stubAttachments(t)
	stubInvoke(t, func(ctx context.Context, dir string, argv []string, timeout time.Duration) invocation {
		return invocation{exitCode: 2, err: errors.New("exit status 2")}
	})

	targets := []Target{{Name: "only", Run: []string{"bad"}}}
	results, err := testRunner(2, 0).Run(context.Background(), testWorkload(targets...), targets)
	if !errors.Is(err, ErrAllTargetsFailed) {
		t.Fatalf("expected ErrAllTargetsFailed, got %v", err)
	}
	if len(results) != 1 || !results[0].Failed {
		t.Fatalf("failed result still expected in output: %+v", results)
	}
}

func TestBuildFailureSkipsMeasurement(t *testing.T) {
	stubAttachments(t)
	var measured int
	stubInvoke(t, func(ctx context.Context, dir string, argv []string, timeout time.Duration) invocation {
		if argv[0] == "make" {
			return invocation{exitCode: 2, stderr: "compile error: missing semicolon\n", err: errors.New("exit status 2")}
		}
		measured++
		return invocation{duration: time.Millisecond}
	})

	targets := []Target{{Name: "compiled", Build: []string{"make"}, Run: []string{"./bin"}}}
	results, err := testRunner(5, 2).Run(context.Background(), testWorkload(targets...), targets)
	if !errors.Is(err, ErrAllTargetsFailed) {
		t.Fatalf("expected ErrAllTargetsFailed, got %v", err)
	}
	if measured != 0 {
		t.Fatalf("run command invoked %d times after failed build", measured)
	}
	if !strings.Contains(results[0].FailureReason, "build failed") {
		t.Fatalf("failure reason: %q", results[0].FailureReason)
	}
	if !strings.Contains(results[0].FailureReason, "missing semicolon") {
		t.Fatalf("stderr not captured in reason: %q", results[0].FailureReason)
	}
}

func TestTimeoutIterationsContributeNoSamples(t *testing.T) {
	stubAttachments(t)
	var calls int
	stubInvoke(t, func(ctx context.Context, dir string, argv []string, timeout time.Duration) invocation {
		calls++
		if calls == 2 {
			return invocation{timedOut: true, exitCode: -1, err: errors.New("invocation timed out")}
		}
		return invocation{duration: time.Millisecond}
	})

	targets := []Target{{Name: "flaky", Run: []string{"./flaky"}}}
	results, err := testRunner(4, 0).Run(context.Background(), testWorkload(targets...), targets)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result := results[0]
	if result.Failed {
		t.Fatalf("a single timeout must not fail the target: %+v", result)
	}
	if result.FailedIterations != 1 {
		t.Fatalf("failed iterations: %d", result.FailedIterations)
	}
	if result.Statistics.SampleCount != 3 {
		t.Fatalf("sample count: %d", result.Statistics.SampleCount)
	}
}

func TestWarmupPrecedesMeasurementAndIsDiscarded(t *testing.T) {
	stubAttachments(t)
	var phases []string
	runner := testRunner(2, 3)
	runner.Progress = func(e ProgressEvent) { phases = append(phases, e.Phase) }
	stubInvoke(t, func(ctx context.Context, dir string, argv []string, timeout time.Duration) invocation {
		return invocation{duration: time.Millisecond}
	})

	targets := []Target{{Name: "lang", Run: []string{"./x"}}}
	results, err := runner.Run(context.Background(), testWorkload(targets...), targets)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Statistics.SampleCount != 2 {
		t.Fatalf("warmup iterations leaked into samples: %d", results[0].Statistics.SampleCount)
	}

	lastWarmup, firstMeasure := -1, -1
	for i, phase := range phases {
		switch phase {
		case "warmup":
			lastWarmup = i
		case "measure":
			if firstMeasure == -1 {
				firstMeasure = i
			}
		}
	}
	if lastWarmup == -1 || firstMeasure == -1 || lastWarmup > firstMeasure {
		t.Fatalf("phase order: %v", phases)
	}
}

func TestCancellationKeepsCompletedResults(t *testing.T) {
	stubAttachments(t)
	ctx, cancel := context.WithCancel(context.Background())
	var targetRuns int
	stubInvoke(t, func(ctx context.Context, dir string, argv []string, timeout time.Duration) invocation {
		targetRuns++
		return invocation{duration: time.Millisecond}
	})

	runner := testRunner(2, 0)
	runner.Progress = func(e ProgressEvent) {
		if e.Language == "first" && e.Phase == "done" {
			cancel()
		}
	}

	targets := []Target{
		{Name: "first", Run: []string{"./a"}},
		{Name: "second", Run: []string{"./b"}},
	}
	results, err := runner.Run(ctx, testWorkload(targets...), targets)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 || results[0].Language != "first" {
		t.Fatalf("expected only the completed target, got %+v", results)
	}
}

func TestAttachmentsAreBestEffort(t *testing.T) {
	prevMem, prevBin := profileMemory, analyzeBinary
	profileMemory = func(ctx context.Context, profiler *profiling.MemoryProfiler, dir string, argv []string) (*profiling.MemoryProfile, error) {
		return nil, errors.New("proc not mounted")
	}
	analyzeBinary = func(path string) (*profiling.BinaryAnalysis, error) {
		return nil, errors.New("artifact missing")
	}
	t.Cleanup(func() { profileMemory, analyzeBinary = prevMem, prevBin })

	stubInvoke(t, func(ctx context.Context, dir string, argv []string, timeout time.Duration) invocation {
		return invocation{duration: time.Millisecond}
	})

	runner := testRunner(2, 0)
	runner.MemoryProfiling = true
	runner.BinaryAnalysis = true
	targets := []Target{{Name: "lang", Run: []string{"./x"}, Artifact: "bin/x"}}
	results, err := runner.Run(context.Background(), testWorkload(targets...), targets)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result := results[0]
	if result.Failed {
		t.Fatal("attachment failures must not fail the result")
	}
	if result.MemoryProfile != nil || result.BinaryAnalysis != nil {
		t.Fatalf("failed attachments should be absent: %+v", result)
	}
}

func TestMemoryPassBoundedByInvocationTimeout(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	prevMem := profileMemory
	profileMemory = func(ctx context.Context, profiler *profiling.MemoryProfiler, dir string, argv []string) (*profiling.MemoryProfile, error) {
		deadline, hasDeadline = ctx.Deadline()
		return &profiling.MemoryProfile{SampleCount: 1}, nil
	}
	t.Cleanup(func() { profileMemory = prevMem })

	stubInvoke(t, func(ctx context.Context, dir string, argv []string, timeout time.Duration) invocation {
		return invocation{duration: time.Millisecond}
	})

	start := time.Now()
	runner := testRunner(2, 0)
	runner.MemoryProfiling = true
	targets := []Target{{Name: "lang", Run: []string{"./x"}}}
	if _, err := runner.Run(context.Background(), testWorkload(targets...), targets); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !hasDeadline {
		t.Fatal("memory pass ran without a deadline")
	}
	if deadline.After(start.Add(runner.Timeout + time.Second)) {
		t.Fatalf("deadline %s exceeds the per-invocation timeout", deadline.Sub(start))
	}
}

func TestAttachmentsPopulatedWhenEnabled(t *testing.T) {
	stubAttachments(t)
	stubInvoke(t, func(ctx context.Context, dir string, argv []string, timeout time.Duration) invocation {
		return invocation{duration: time.Millisecond}
	})

	runner := testRunner(2, 0)
	runner.MemoryProfiling = true
	runner.BinaryAnalysis = true
	targets := []Target{{Name: "lang", Run: []string{"./x"}, Artifact: "bin/x"}}
	results, err := runner.Run(context.Background(), testWorkload(targets...), targets)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result := results[0]
	if result.MemoryProfile == nil || result.MemoryProfile.PeakRSSBytes != 4096 {
		t.Fatalf("memory profile: %+v", result.MemoryProfile)
	}
	if result.BinaryAnalysis == nil || result.BinaryAnalysis.TotalSizeBytes != 1234 {
		t.Fatalf("binary analysis: %+v", result.BinaryAnalysis)
	}
}
