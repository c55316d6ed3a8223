// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/matt-FFFFFF/deflake/internal/ctxlog"
	"github.com/matt-FFFFFF/deflake/internal/progress"
	"github.com/matt-FFFFFF/deflake/internal/runbatch"
	"golang.org/x/sync/semaphore"
)

// ErrInvalidPlan is returned when MaxRuns or PoolSize is not positive.
var ErrInvalidPlan = errors.New("max runs and pool size must be positive")

// Runner executes one run. runbatch.ShellCommand implements it.
type Runner interface {
	Run(ctx context.Context, index int) runbatch.Outcome
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, index int) runbatch.Outcome

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, index int) runbatch.Outcome {
	return f(ctx, index)
}

// Recorder receives every finished outcome. aggregate.Aggregator implements it.
type Recorder interface {
	Record(o runbatch.Outcome) bool
}

// Scheduler dispatches runs 1..MaxRuns to Runner and feeds the outcomes to Recorder.
// A Scheduler holds no state between calls to Run.
type Scheduler struct {
	Runner            Runner
	Recorder          Recorder
	Reporter          progress.Reporter // Optional, receives an event as each run is dispatched
	MaxRuns           int
	PoolSize          int
	ContinueOnFailure bool
}

// Strategy returns the concurrency strategy for the configured pool size.
func (s *Scheduler) Strategy() Strategy {
	if s.poolSize() > 1 {
		return Pooled
	}

	return Sequential
}

// Plan returns the batch sizes for maxRuns runs in batches of poolSize:
// every batch is full except a final remainder batch. The sizes sum to maxRuns.
func Plan(maxRuns, poolSize int) []int {
	if maxRuns <= 0 || poolSize <= 0 {
		return nil
	}

	plan := make([]int, 0, (maxRuns+poolSize-1)/poolSize)

	for remaining := maxRuns; remaining > 0; remaining -= poolSize {
		plan = append(plan, min(poolSize, remaining))
	}

	return plan
}

// Run dispatches runs until all MaxRuns have finished, a failure stops the session,
// or ctx is cancelled. It blocks until every dispatched run has returned.
func (s *Scheduler) Run(ctx context.Context) (State, error) {
	if s.MaxRuns <= 0 || s.PoolSize <= 0 {
		return StateIdle, fmt.Errorf("%w: max runs %d, pool size %d", ErrInvalidPlan, s.MaxRuns, s.PoolSize)
	}

	logger := ctxlog.Logger(ctx).With("strategy", s.Strategy().String())
	logger.Debug("scheduler starting",
		"maxRuns", s.MaxRuns,
		"poolSize", s.poolSize(),
		"batches", len(Plan(s.MaxRuns, s.poolSize())),
		"continueOnFailure", s.ContinueOnFailure)

	var state State

	switch s.Strategy() {
	case Pooled:
		state = s.runPooled(ctx)
	default:
		state = s.runSequential(ctx)
	}

	logger.Debug("scheduler finished", "state", state.String())

	return state, nil
}

func (s *Scheduler) runSequential(ctx context.Context) State {
	for i := 1; i <= s.MaxRuns; i++ {
		if ctx.Err() != nil {
			return StateCancelled
		}

		o := s.dispatch(ctx, i)

		switch {
		case o.Status == runbatch.StatusCancelled:
			return StateCancelled
		case o.Failed() && !s.ContinueOnFailure:
			return StateFailedStop
		}
	}

	return StateCompleted
}

func (s *Scheduler) runPooled(ctx context.Context) State {
	sem := semaphore.NewWeighted(int64(s.poolSize()))

	var (
		wg          sync.WaitGroup
		stopped     atomic.Bool
		interrupted atomic.Bool
	)

	for i := 1; i <= s.MaxRuns; i++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			interrupted.Store(true)
			break
		}

		// A slot is only freed after the run that held it has been recorded,
		// so a failure is always visible here before the next dispatch.
		if stopped.Load() || ctx.Err() != nil {
			sem.Release(1)

			if ctx.Err() != nil {
				interrupted.Store(true)
			}

			break
		}

		wg.Add(1)

		go func(index int) {
			defer wg.Done()
			defer sem.Release(1)

			o := s.dispatch(ctx, index)

			switch {
			case o.Status == runbatch.StatusCancelled:
				interrupted.Store(true)
			case o.Failed() && !s.ContinueOnFailure:
				stopped.Store(true)
			}
		}(i)
	}

	wg.Wait()

	switch {
	case interrupted.Load():
		return StateCancelled
	case stopped.Load():
		return StateFailedStop
	default:
		return StateCompleted
	}
}

func (s *Scheduler) dispatch(ctx context.Context, index int) runbatch.Outcome {
	if s.Reporter != nil {
		s.Reporter.Report(progress.NewEvent(index, progress.EventStarted, ""))
	}

	o := s.Runner.Run(ctx, index)

	if s.Recorder != nil {
		s.Recorder.Record(o)
	}

	return o
}

func (s *Scheduler) poolSize() int {
	return max(1, min(s.PoolSize, s.MaxRuns))
}
