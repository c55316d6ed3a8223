// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubFs(t *testing.T, files map[string]string) {
	t.Helper()

	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}

	stubs := gostub.Stub(&FsFactory, func() afero.Fs {
		return fs
	})
	t.Cleanup(stubs.Reset)
}

func TestLoadFile_YAML(t *testing.T) {
	stubFs(t, map[string]string{
		"/work/deflake.yaml": `
command: go test -run TestFlaky -count=1 ./...
max_runs: 50
pool_size: 4
continue_on_failure: true
run_timeout: 30s
env:
  GOFLAGS: -race
`,
	})

	f, err := LoadFile("/work/deflake.yaml")
	require.NoError(t, err)

	c := Defaults()
	require.NoError(t, f.Apply(c))

	assert.Equal(t, "go test -run TestFlaky -count=1 ./...", c.Command)
	assert.Equal(t, 50, c.MaxRuns)
	assert.Equal(t, 4, c.PoolSize)
	assert.True(t, c.ContinueOnFailure)
	assert.Equal(t, 30*time.Second, c.RunTimeout)
	assert.Equal(t, "-race", c.Env["GOFLAGS"])
	// Unset keys keep their defaults.
	assert.Equal(t, DefaultCounterToken, c.CounterToken)
	assert.False(t, c.Quiet)
	require.NoError(t, c.Validate())
}

func TestLoadFile_YAMLUnknownKey(t *testing.T) {
	stubFs(t, map[string]string{
		"deflake.yml": "command: ls\nmax_runz: 5\n",
	})

	_, err := LoadFile("deflake.yml")
	require.ErrorIs(t, err, ErrParseConfigFile)
}

func TestLoadFile_HCL(t *testing.T) {
	t.Setenv("DEFLAKE_CONFIG_TEST_DIR", "/tmp/flaky")

	stubFs(t, map[string]string{
		"deflake.hcl": `
command           = "touch file#n#.txt"
counter_token     = "#n#"
max_runs          = 20
pool_size         = num_cpu
quiet             = true
working_directory = env.DEFLAKE_CONFIG_TEST_DIR
env = {
  RUN_DIR = "${env.DEFLAKE_CONFIG_TEST_DIR}/out"
}
`,
	})

	f, err := LoadFile("deflake.hcl")
	require.NoError(t, err)

	c := Defaults()
	require.NoError(t, f.Apply(c))

	assert.Equal(t, "touch file#n#.txt", c.Command)
	assert.Equal(t, "#n#", c.CounterToken)
	assert.Equal(t, 20, c.MaxRuns)
	assert.Equal(t, runtime.NumCPU(), c.PoolSize)
	assert.True(t, c.Quiet)
	assert.Equal(t, "/tmp/flaky", c.WorkingDirectory)
	assert.Equal(t, "/tmp/flaky/out", c.Env["RUN_DIR"])
	assert.Zero(t, c.RunTimeout)
}

func TestLoadFile_HCLErrors(t *testing.T) {
	stubFs(t, map[string]string{
		"syntax.hcl":  `command = `,
		"unknown.hcl": `commandz = "ls"`,
		"type.hcl":    `max_runs = "many"`,
	})

	for _, name := range []string{"syntax.hcl", "unknown.hcl", "type.hcl"} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(name)
			require.ErrorIs(t, err, ErrParseConfigFile)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	stubFs(t, nil)

	_, err := LoadFile("nope.yaml")
	require.ErrorIs(t, err, ErrReadConfigFile)
}

func TestParse_UnknownFormat(t *testing.T) {
	_, err := Parse("deflake.toml", []byte(`command = "ls"`))
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestApply_BadTimeout(t *testing.T) {
	f, err := Parse("x.yaml", []byte("run_timeout: soon\n"))
	require.NoError(t, err)

	err = f.Apply(Defaults())
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.ErrorIs(t, err, ErrRunTimeout)
}

func TestApply_Nil(t *testing.T) {
	var f *File

	c := Defaults()
	require.NoError(t, f.Apply(c))
	assert.Equal(t, Defaults(), c)
}

func TestEvalContext(t *testing.T) {
	t.Setenv("DEFLAKE_EVAL_TEST", "yes")

	ctx := EvalContext()
	env := ctx.Variables["env"]
	assert.Equal(t, "yes", env.GetAttr("DEFLAKE_EVAL_TEST").AsString())

	n, _ := ctx.Variables["num_cpu"].AsBigFloat().Int64()
	assert.Equal(t, strconv.Itoa(runtime.NumCPU()), strconv.FormatInt(n, 10))
}
