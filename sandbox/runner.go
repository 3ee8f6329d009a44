// ABOUTME: Subprocess runner for infrastructure tools with timeout and process-group kill.
// ABOUTME: Child processes get their own group so a kill takes grandchildren with it.

package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// ToolResult is the outcome of one tool invocation. A non-zero exit code is
// a result, not an error; errors mean the tool could not be run at all.
type ToolResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// Success reports a zero exit without timeout.
func (r ToolResult) Success() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// ErrToolNotFound wraps exec.ErrNotFound so callers can branch on missing
// tooling versus genuine failures.
var ErrToolNotFound = errors.New("sandbox: tool not found")

// ToolRunner runs a tool in a working directory. The interface exists so
// checkers can be tested without terraform or checkov installed.
type ToolRunner interface {
	Run(ctx context.Context, dir string, timeout time.Duration, name string, args ...string) (ToolResult, error)
}

// Runner is the real ToolRunner.
type Runner struct{}

// NewRunner creates a process runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes the tool. On context or timeout expiry the whole process
// group is killed, then the wait gives stragglers three seconds before
// giving up on pipe draining.
func (r *Runner) Run(ctx context.Context, dir string, timeout time.Duration, name string, args ...string) (ToolResult, error) {
	if _, err := exec.LookPath(name); err != nil {
		return ToolResult{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		return nil
	}
	cmd.WaitDelay = 3 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := ToolResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		TimedOut: runCtx.Err() == context.DeadlineExceeded,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if result.TimedOut {
			result.ExitCode = -1
			return result, nil
		}
		return result, fmt.Errorf("run %s: %w", name, err)
	}
	return result, nil
}

var _ ToolRunner = (*Runner)(nil)
