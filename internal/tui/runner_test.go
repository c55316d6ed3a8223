// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/deflake/internal/config"
	"github.com/matt-FFFFFF/deflake/internal/deflaker"
	"github.com/matt-FFFFFF/deflake/internal/runbatch"
	"github.com/matt-FFFFFF/deflake/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headless() RunnerOption {
	return WithProgramOptions(
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
		tea.WithoutRenderer(),
	)
}

func TestRunner_Run(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := config.Defaults()
	cfg.Command = "unused"
	cfg.MaxRuns = 5
	cfg.PoolSize = 2

	runner := NewRunner(ctx, cfg, headless(), WithExitOnComplete())

	pass := scheduler.RunnerFunc(func(_ context.Context, index int) runbatch.Outcome {
		return runbatch.Outcome{Index: index, Passed: true, Status: runbatch.StatusPassed, Message: runbatch.PassMessage}
	})

	session, err := deflaker.New(cfg, deflaker.WithRunner(pass), deflaker.WithReporter(runner.Reporter()))
	require.NoError(t, err)

	res, runErr, tuiErr := runner.Run(ctx, session)
	require.NoError(t, runErr)
	require.NoError(t, tuiErr)

	require.NotNil(t, res)
	assert.Equal(t, scheduler.StateCompleted, res.State)
	assert.True(t, runner.Model().Completed())

	_, passed, failed := runner.Model().Counts()
	assert.Equal(t, 5, passed)
	assert.Zero(t, failed)
}

func TestRunner_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := config.Defaults()
	cfg.Command = "unused"
	cfg.MaxRuns = 3

	runner := NewRunner(ctx, cfg, headless())

	block := scheduler.RunnerFunc(func(ctx context.Context, index int) runbatch.Outcome {
		<-ctx.Done()
		return runbatch.Outcome{Index: index, Status: runbatch.StatusCancelled}
	})

	session, err := deflaker.New(cfg, deflaker.WithRunner(block), deflaker.WithReporter(runner.Reporter()))
	require.NoError(t, err)

	time.AfterFunc(100*time.Millisecond, cancel)

	res, runErr, _ := runner.Run(ctx, session)
	require.ErrorIs(t, runErr, deflaker.ErrCancelled)
	require.NotNil(t, res)
	assert.Equal(t, scheduler.StateCancelled, res.State)
}
