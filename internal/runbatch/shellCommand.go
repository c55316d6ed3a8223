// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/matt-FFFFFF/deflake/internal/ctxlog"
)

// RunIndexEnv is set in the environment of every run to its 1-based index.
const RunIndexEnv = "DEFLAKE_RUN_INDEX"

var (
	// ErrCommandNotFound is returned when the command template is empty.
	ErrCommandNotFound = errors.New("command not found")
	// ErrShellNotFound is returned when the configured shell cannot be resolved.
	ErrShellNotFound = errors.New("shell not found")
	// ErrCouldNotStartProcess is returned when the process could not be started.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrFailedToCreatePipe is returned when the operating system pipe could not be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
	// ErrTimeoutExceeded is returned when a run exceeds its timeout.
	ErrTimeoutExceeded = errors.New("timeout exceeded")
	// ErrRunCancelled is returned when a run is killed because its context was cancelled.
	ErrRunCancelled = errors.New("run cancelled")
)

// ShellCommand executes a command template through a shell.
// It is safe to call Run concurrently: all per-run state lives in the call.
type ShellCommand struct {
	Template     string            // Command line containing zero or more counter tokens
	CounterToken string            // Substring replaced by the run index, never empty
	Shell        string            // Absolute path of the shell
	Cwd          string            // Working directory, empty for the current directory
	Env          map[string]string // Extra environment variables
	Timeout      time.Duration     // Per-run timeout, zero for none
}

// New creates a ShellCommand for template. An empty shell selects DefaultShell;
// a bare shell name is resolved through PATH.
func New(template, counterToken, shell string) (*ShellCommand, error) {
	if strings.TrimSpace(template) == "" {
		return nil, ErrCommandNotFound
	}

	if shell == "" {
		shell = DefaultShell()
	}

	if !filepath.IsAbs(shell) {
		p, err := exec.LookPath(shell)
		if err != nil {
			return nil, errors.Join(ErrShellNotFound, err)
		}

		shell = p
	}

	return &ShellCommand{
		Template:     template,
		CounterToken: counterToken,
		Shell:        shell,
		Env:          make(map[string]string),
	}, nil
}

// Render returns the command line for the run with the given index.
func (c *ShellCommand) Render(index int) string {
	if c.CounterToken == "" {
		return c.Template
	}

	return strings.ReplaceAll(c.Template, c.CounterToken, strconv.Itoa(index))
}

// Run executes the command for the given run index and blocks until it has finished.
func (c *ShellCommand) Run(ctx context.Context, index int) (out Outcome) {
	line := c.Render(index)
	logger := ctxlog.Logger(ctx).With("runnableType", "ShellCommand", "index", index)
	logger.Debug("command info", "shell", c.Shell, "cwd", c.Cwd, "commandLine", line)

	out = Outcome{
		Index:       index,
		CommandLine: line,
		ExitCode:    -1,
	}
	start := time.Now()

	defer func() {
		out.Duration = time.Since(start)
	}()

	if ctx.Err() != nil {
		return cancelled(ctx, out)
	}

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		return errored(out, errors.Join(ErrCouldNotStartProcess, err))
	}
	defer devNull.Close() //nolint:errcheck

	rOut, wOut, err := os.Pipe()
	if err != nil {
		return errored(out, errors.Join(ErrFailedToCreatePipe, err))
	}
	defer rOut.Close() //nolint:errcheck

	rErr, wErr, err := os.Pipe()
	if err != nil {
		_ = wOut.Close()
		return errored(out, errors.Join(ErrFailedToCreatePipe, err))
	}
	defer rErr.Close() //nolint:errcheck

	ps, err := os.StartProcess(c.Shell, []string{filepath.Base(c.Shell), shellSwitch(c.Shell), line}, &os.ProcAttr{
		Dir:   c.Cwd,
		Env:   c.environ(index),
		Files: []*os.File{devNull, wOut, wErr},
		Sys:   sysProcAttr(),
	})

	// The child holds its own copies of the write ends.
	_ = wOut.Close()
	_ = wErr.Close()

	if err != nil {
		logger.Debug("process failed to start", "error", err)
		return errored(out, errors.Join(ErrCouldNotStartProcess, err))
	}

	logger.Debug("process started", "pid", ps.Pid)

	var (
		wg             sync.WaitGroup
		stdout, stderr []byte
		outErr, errErr error
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		stdout, outErr = readAllUpToMax(ctx, rOut, maxBufferSize)
	}()

	go func() {
		defer wg.Done()
		stderr, errErr = readAllUpToMax(ctx, rErr, maxBufferSize)
	}()

	// Process watchdog: kills the process group on cancellation or timeout.
	done := make(chan struct{})
	watchdogDone := make(chan struct{})
	wasKilled := make(chan error, 1)

	var timeout <-chan time.Time

	if c.Timeout > 0 {
		timer := time.NewTimer(c.Timeout)
		defer timer.Stop()

		timeout = timer.C
	}

	go func() {
		defer close(watchdogDone)

		var reason error

		select {
		case <-done:
			return
		case <-ctx.Done():
			reason = ErrRunCancelled
		case <-timeout:
			reason = ErrTimeoutExceeded
		}

		logger.Info("killing process", "pid", ps.Pid, "reason", reason)

		if err := killTree(ps); err != nil && !errors.Is(err, os.ErrProcessDone) {
			logger.Error("process kill error", "pid", ps.Pid, "error", err)
		}

		wasKilled <- reason
	}()

	state, psErr := ps.Wait()

	close(done)
	<-watchdogDone
	wg.Wait()

	out.StdOut = stdout
	out.StdErr = stderr

	if state != nil {
		out.ExitCode = state.ExitCode()
	}

	logger.Debug("process finished", "exitCode", out.ExitCode, "stdoutBytes", len(stdout), "stderrBytes", len(stderr))

	var killReason error

	select {
	case killReason = <-wasKilled:
	default:
	}

	switch {
	case errors.Is(killReason, ErrRunCancelled):
		return cancelled(ctx, out)
	case errors.Is(killReason, ErrTimeoutExceeded):
		out.ExitCode = -1
		out.Status = StatusFailed
		out.Err = killReason
		out.Message = FailMessage(index, joinDetail(string(stderr), fmt.Sprintf("%s after %s", ErrTimeoutExceeded, c.Timeout)))
	case psErr != nil:
		return errored(out, psErr)
	case out.ExitCode == 0:
		out.Passed = true
		out.Status = StatusPassed
		out.Message = PassMessage
	default:
		out.Status = StatusFailed
		out.Message = FailMessage(index, string(stderr))
	}

	// Truncated output is recorded but does not change the verdict.
	if ioErr := errors.Join(outErr, errErr); ioErr != nil {
		logger.Debug("output capture incomplete", "error", ioErr)
		out.Err = errors.Join(out.Err, ioErr)
	}

	return out
}

// environ returns the process environment with the configured variables and
// the run index applied. Overridden keys are removed so each key appears once.
func (c *ShellCommand) environ(index int) []string {
	extra := maps.Clone(c.Env)
	if extra == nil {
		extra = make(map[string]string, 1)
	}

	extra[RunIndexEnv] = strconv.Itoa(index)

	env := slices.DeleteFunc(os.Environ(), func(kv string) bool {
		k, _, _ := strings.Cut(kv, "=")
		_, ok := extra[k]

		return ok
	})

	for _, k := range slices.Sorted(maps.Keys(extra)) {
		env = append(env, k+"="+extra[k])
	}

	return env
}

func errored(out Outcome, err error) Outcome {
	out.ExitCode = -1
	out.Status = StatusErrored
	out.Err = err
	out.Message = FailMessage(out.Index, err.Error())

	return out
}

func cancelled(ctx context.Context, out Outcome) Outcome {
	out.ExitCode = -1
	out.Status = StatusCancelled
	out.Err = errors.Join(ErrRunCancelled, context.Cause(ctx))
	out.Message = FailMessage(out.Index, ErrRunCancelled.Error())

	return out
}

func joinDetail(parts ...string) string {
	kept := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimRight(p, " \t\r\n"); strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}

	return strings.Join(kept, "\n")
}
