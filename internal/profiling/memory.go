// internal/profiling/memory.go
// Package profiling provides the auxiliary measurement passes: resident
// memory sampling and compiled-artifact size analysis. Both run separately
// from timing passes so their overhead never contaminates raw samples.
package profiling

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// MemoryProfile reports peak resident memory observed for one invocation.
type MemoryProfile struct {
	PeakRSSBytes    uint64 `json:"peak_rss_bytes"`
	AverageRSSBytes uint64 `json:"average_rss_bytes"`
	SampleCount     int    `json:"sample_count"`
	ExitCode        int    `json:"exit_code"`
}

// MemoryProfiler polls /proc/<pid>/status while a process runs.
type MemoryProfiler struct {
	Interval time.Duration
	ProcRoot string
}

// NewMemoryProfiler returns a profiler with a 5ms sampling interval.
func NewMemoryProfiler() *MemoryProfiler {
	return &MemoryProfiler{Interval: 5 * time.Millisecond, ProcRoot: "/proc"}
}

// Profile starts cmd, samples its resident set until exit, and reports the
// peak. The command must not have been started already, and must have been
// built with exec.CommandContext so ctx expiry kills the process; a profile
// aborted by ctx returns an error instead of a truncated profile.
func (p *MemoryProfiler) Profile(ctx context.Context, cmd *exec.Cmd) (*MemoryProfile, error) {
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("memory profile start: %w", err)
	}
	pid := cmd.Process.Pid

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var peak, total uint64
	samples := 0

	ticker := time.NewTicker(p.interval())
	defer ticker.Stop()

	running := true
	for running {
		select {
		case err := <-done:
			running = false
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("memory profile aborted: %w", ctxErr)
			}
			profile := &MemoryProfile{
				PeakRSSBytes: peak,
				SampleCount:  samples,
				ExitCode:     exitCode(err),
			}
			if samples > 0 {
				profile.AverageRSSBytes = total / uint64(samples)
			}
			return profile, nil
		case <-ticker.C:
			rss, hwm, ok := p.readMemStatus(pid)
			if !ok {
				continue
			}
			samples++
			total += rss
			if hwm > peak {
				peak = hwm
			}
			if rss > peak {
				peak = rss
			}
		}
	}
	return nil, nil // unreachable
}

func (p *MemoryProfiler) interval() time.Duration {
	if p.Interval <= 0 {
		return 5 * time.Millisecond
	}
	return p.Interval
}

// readMemStatus parses VmRSS and VmHWM (both in kB) from the status file.
func (p *MemoryProfiler) readMemStatus(pid int) (rss, hwm uint64, ok bool) {
	data, err := os.ReadFile(filepath.Join(p.procRoot(), strconv.Itoa(pid), "status"))
	if err != nil {
		return 0, 0, false
	}
	return parseMemStatus(string(data))
}

func (p *MemoryProfiler) procRoot() string {
	if p.ProcRoot == "" {
		return "/proc"
	}
	return p.ProcRoot
}

func parseMemStatus(status string) (rss, hwm uint64, ok bool) {
	for _, line := range strings.Split(status, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "VmRSS:":
			if v, err := strconv.ParseUint(fields[1], 10, 64); err == nil {
				rss = v * 1024
				ok = true
			}
		case "VmHWM:":
			if v, err := strconv.ParseUint(fields[1], 10, 64); err == nil {
				hwm = v * 1024
				ok = true
			}
		}
	}
	return rss, hwm, ok
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return 1
}
