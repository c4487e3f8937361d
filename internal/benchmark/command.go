// internal/benchmark/command.go
package benchmark

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"time"
)

// maxCapturedOutput bounds stdout/stderr capture per invocation so a noisy
// workload cannot exhaust memory.
const maxCapturedOutput = 1 << 20

// invoke is a seam for tests; production code runs real subprocesses.
var invoke = runCommand

// runCommand executes argv in dir with a hard deadline, capturing bounded
// output and the wall-clock duration of the whole invocation.
func runCommand(ctx context.Context, dir string, argv []string, timeout time.Duration) invocation {
	if len(argv) == 0 {
		return invocation{exitCode: 127, err: errors.New("empty command")}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = dir

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return invocation{exitCode: 127, err: err}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return invocation{exitCode: 127, err: err}
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return invocation{exitCode: 127, err: err}
	}

	var outBuf, errBuf bytes.Buffer
	outDone := make(chan error, 1)
	errDone := make(chan error, 1)

	go func() {
		_, e := io.Copy(&outBuf, io.LimitReader(stdoutPipe, maxCapturedOutput))
		outDone <- e
	}()
	go func() {
		_, e := io.Copy(&errBuf, io.LimitReader(stderrPipe, maxCapturedOutput))
		errDone <- e
	}()

	// Wait closes the pipes, so the copies must finish first.
	<-outDone
	<-errDone
	waitErr := cmd.Wait()
	duration := time.Since(start)

	result := invocation{
		stdout:   outBuf.String(),
		stderr:   errBuf.String(),
		duration: duration,
	}

	if waitErr != nil {
		result.exitCode = exitStatus(waitErr)
		result.err = waitErr
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			result.timedOut = true
			result.err = errors.New("invocation timed out")
		}
	}

	return result
}

func exitStatus(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return 1
}
