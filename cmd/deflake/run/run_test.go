// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/matt-FFFFFF/deflake/internal/color"
	"github.com/matt-FFFFFF/deflake/internal/config"
	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

type cliResult struct {
	stdout   string
	stderr   string
	err      error
	exitCode int
}

func runCLI(ctx context.Context, t *testing.T, args ...string) cliResult {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("skipping POSIX shell test on windows")
	}

	prev := color.SetEnabled(false)
	t.Cleanup(func() { color.SetEnabled(prev) })

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)

	cmd := NewCommand()
	cmd.Writer = stdout
	cmd.ErrWriter = stderr
	cmd.ExitErrHandler = func(context.Context, *cli.Command, error) {}

	err := cmd.Run(ctx, append([]string{"deflake"}, args...))

	res := cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}

	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		res.exitCode = exitErr.ExitCode()
	}

	return res
}

func TestRun_AllPass(t *testing.T) {
	res := runCLI(context.Background(), t, "-m", "3", "true")

	require.NoError(t, res.err)
	assert.Equal(t, "PASS\nPASS\nPASS\n3 runs, 3 passed, 0 failed\n", res.stdout)
}

func TestRun_StopsOnFailure(t *testing.T) {
	res := runCLI(context.Background(), t, "--max-runs", "10", "test #count# -ne 2")

	require.Error(t, res.err)
	assert.Equal(t, 1, res.exitCode)
	assert.Equal(t, "PASS\nFAIL (run 2)\n2 runs, 1 passed, 1 failed (first failure: run 2)\n", res.stdout)
}

func TestRun_ContinueOnFailureAndPool(t *testing.T) {
	res := runCLI(context.Background(), t, "-m", "6", "-p", "3", "-k", "test #count# -ne 4")

	assert.Equal(t, 1, res.exitCode)
	assert.Contains(t, res.stdout, "FAIL (run 4)")
	assert.Contains(t, res.stdout, "6 runs, 5 passed, 1 failed (first failure: run 4)")
}

func TestRun_Quiet(t *testing.T) {
	res := runCLI(context.Background(), t, "-q", "-m", "2", "true")

	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)
}

func TestRun_CustomCounterToken(t *testing.T) {
	res := runCLI(context.Background(), t, "-q", "-m", "3", "-c", "@n", `test "$DEFLAKE_RUN_INDEX" = @n`)
	require.NoError(t, res.err)
}

func TestRun_EnvFlag(t *testing.T) {
	res := runCLI(context.Background(), t, "-q", "-m", "1", "-e", "FOO=bar", "--env", "BAZ=a=b", `test "$FOO$BAZ" = bara=b`)
	require.NoError(t, res.err)
}

func TestRun_Timeout(t *testing.T) {
	res := runCLI(context.Background(), t, "-m", "1", "-t", "100ms", "sleep 5")

	assert.Equal(t, 1, res.exitCode)
	assert.Contains(t, res.stdout, "timeout exceeded")
}

func TestRun_ConfigErrors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want error
	}{
		{name: "no command", args: nil, want: config.ErrEmptyCommand},
		{name: "zero runs", args: []string{"-m", "0", "true"}, want: config.ErrMaxRuns},
		{name: "zero pool", args: []string{"-p", "0", "true"}, want: config.ErrPoolSize},
		{name: "empty token", args: []string{"-c", "", "true"}, want: config.ErrCounterToken},
		{name: "bad env", args: []string{"-e", "FOO", "true"}, want: ErrInvalidEnvFlag},
		{name: "too many arguments", args: []string{"echo", "hi"}, want: ErrTooManyArguments},
		{name: "missing config file", args: []string{"-f", "does-not-exist.yaml", "true"}, want: ErrGetConfigFile},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := runCLI(context.Background(), t, tc.args...)

			require.Error(t, res.err)
			assert.Equal(t, 1, res.exitCode)
			assert.Contains(t, res.err.Error(), tc.want.Error())
			assert.Empty(t, res.stdout, "nothing may run with an invalid configuration")
		})
	}
}

func TestRun_ConfigFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg/deflake.yaml", []byte("command: \"true\"\nmax_runs: 4\nquiet: false\n"), 0o644))

	stubs := gostub.Stub(&config.FsFactory, func() afero.Fs {
		return fs
	})
	defer stubs.Reset()

	t.Run("file values", func(t *testing.T) {
		res := runCLI(context.Background(), t, "-f", "/cfg/deflake.yaml")
		require.NoError(t, res.err)
		assert.Equal(t, "PASS\nPASS\nPASS\nPASS\n4 runs, 4 passed, 0 failed\n", res.stdout)
	})

	t.Run("flags override file", func(t *testing.T) {
		res := runCLI(context.Background(), t, "-f", "/cfg/deflake.yaml", "-m", "1", "-q")
		require.NoError(t, res.err)
		assert.Empty(t, res.stdout)
	})

	t.Run("argument overrides command", func(t *testing.T) {
		res := runCLI(context.Background(), t, "-f", "/cfg/deflake.yaml", "false")
		assert.Equal(t, 1, res.exitCode)
		assert.Contains(t, res.stdout, "FAIL (run 1)")
	})
}

func TestRun_HCLConfigFile(t *testing.T) {
	res := runCLI(context.Background(), t, "--config", "testdata/fail.hcl")

	assert.Equal(t, 1, res.exitCode)
	assert.Equal(t, "FAIL (run 1)\n1 runs, 0 passed, 1 failed (first failure: run 1)\n", res.stdout)
}

func TestRun_Report(t *testing.T) {
	fs := afero.NewMemMapFs()

	stubs := gostub.Stub(&ReportFsFactory, func() afero.Fs {
		return fs
	})
	defer stubs.Reset()

	res := runCLI(context.Background(), t, "-q", "-m", "3", "-o", "/report.yaml", "test #count# -ne 3")
	assert.Equal(t, 1, res.exitCode)

	b, err := afero.ReadFile(fs, "/report.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(b), "state: failed-stop")
	assert.Contains(t, string(b), "first_failure: 3")
	assert.Contains(t, string(b), "test #count# -ne 3")
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	res := runCLI(ctx, t, "-m", "5", "-p", "2", "sleep 10")

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, res.exitCode)
	assert.Equal(t, CancelledMessage+"\n", res.stderr)
	assert.Empty(t, res.stdout)
}
