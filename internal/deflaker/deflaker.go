// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package deflaker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matt-FFFFFF/deflake/internal/aggregate"
	"github.com/matt-FFFFFF/deflake/internal/config"
	"github.com/matt-FFFFFF/deflake/internal/ctxlog"
	"github.com/matt-FFFFFF/deflake/internal/progress"
	"github.com/matt-FFFFFF/deflake/internal/runbatch"
	"github.com/matt-FFFFFF/deflake/internal/scheduler"
)

var (
	// ErrCancelled is returned by Run when the session was interrupted.
	ErrCancelled = errors.New("deflake session cancelled")
	// ErrAlreadyRunning is returned when Run is called while a session is in progress.
	ErrAlreadyRunning = errors.New("deflake session already running")
)

// Result is the outcome of a session.
type Result struct {
	RunID    string             // Unique identifier of the session
	State    scheduler.State    // Terminal state
	Log      []string           // PASS/FAIL messages in run index order
	Outcomes []runbatch.Outcome // Recorded outcomes in run index order
	Arrivals []runbatch.Outcome // Recorded outcomes in completion order
	Summary  aggregate.Summary  // Counts of the recorded outcomes
	Started  time.Time          // When the session started
	Duration time.Duration      // Wall time of the session
}

// HasFailure reports whether any recorded run failed.
func (r *Result) HasFailure() bool {
	return r != nil && r.Summary.Failed > 0
}

// FirstFailure returns the failure that was recorded first.
func (r *Result) FirstFailure() (runbatch.Outcome, bool) {
	if r == nil {
		return runbatch.Outcome{}, false
	}

	for _, o := range r.Arrivals {
		if o.Failed() {
			return o, true
		}
	}

	return runbatch.Outcome{}, false
}

// Deflaker runs a command repeatedly according to its configuration.
type Deflaker struct {
	cfg      *config.Config
	out      io.Writer
	reporter progress.Reporter
	runner   scheduler.Runner

	mu    sync.Mutex
	state scheduler.State
}

// Option configures a Deflaker.
type Option func(*Deflaker)

// WithOutput sets the writer for the per-run PASS/FAIL lines. The default discards them.
func WithOutput(w io.Writer) Option {
	return func(d *Deflaker) {
		d.out = w
	}
}

// WithReporter sends progress events to r.
func WithReporter(r progress.Reporter) Option {
	return func(d *Deflaker) {
		d.reporter = r
	}
}

// WithRunner replaces the shell command runner.
func WithRunner(r scheduler.Runner) Option {
	return func(d *Deflaker) {
		d.runner = r
	}
}

// New validates cfg and returns a Deflaker for it. The configuration is copied,
// later changes to cfg have no effect.
func New(cfg *config.Config, opts ...Option) (*Deflaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil configuration", config.ErrInvalidConfig)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Deflaker{
		cfg: cfg.Clone(),
		out: io.Discard,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.runner == nil {
		cmd, err := runbatch.New(d.cfg.Command, d.cfg.CounterToken, d.cfg.Shell)
		if err != nil {
			return nil, errors.Join(config.ErrInvalidConfig, err)
		}

		cmd.Cwd = d.cfg.WorkingDirectory
		cmd.Env = d.cfg.Env
		cmd.Timeout = d.cfg.RunTimeout
		d.runner = cmd
	}

	return d, nil
}

// Config returns a copy of the configuration.
func (d *Deflaker) Config() *config.Config {
	return d.cfg.Clone()
}

// State returns the state of the current or last session.
func (d *Deflaker) State() scheduler.State {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state
}

// Run executes the session and blocks until every dispatched run has finished.
// On cancellation the partial result is returned together with an error wrapping
// ErrCancelled and the cancellation cause.
func (d *Deflaker) Run(ctx context.Context) (*Result, error) {
	if err := d.begin(); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}

	ctx = ctxlog.With(ctx, "runID", res.RunID)
	logger := ctxlog.Logger(ctx)
	logger.Info("deflake session starting",
		"command", d.cfg.Command,
		"maxRuns", d.cfg.MaxRuns,
		"poolSize", d.cfg.PoolSize)

	agg := aggregate.New(
		aggregate.WithOutput(d.out),
		aggregate.WithQuiet(d.cfg.Quiet),
		aggregate.WithReporter(d.reporter),
	)

	sched := &scheduler.Scheduler{
		Runner:            d.runner,
		Recorder:          agg,
		Reporter:          d.reporter,
		MaxRuns:           d.cfg.MaxRuns,
		PoolSize:          d.cfg.PoolSize,
		ContinueOnFailure: d.cfg.ContinueOnFailure,
	}

	state, err := sched.Run(ctx)
	if err != nil {
		d.end(scheduler.StateIdle)
		return nil, errors.Join(config.ErrInvalidConfig, err)
	}

	res.State = state
	res.Log = agg.Log()
	res.Outcomes = agg.Outcomes()
	res.Arrivals = agg.Arrivals()
	res.Summary = agg.Summary()
	res.Duration = time.Since(res.Started)

	d.end(state)

	if d.reporter != nil {
		e := progress.NewEvent(0, progress.EventFinished, state.String())
		e.Data.State = state.String()
		e.Data.Duration = res.Duration
		d.reporter.Report(e)
	}

	logger.Info("deflake session finished",
		"state", state.String(),
		"total", res.Summary.Total,
		"failed", res.Summary.Failed,
		"duration", res.Duration.String())

	if state == scheduler.StateCancelled {
		if cause := context.Cause(ctx); cause != nil {
			return res, fmt.Errorf("%w: %w", ErrCancelled, cause)
		}

		return res, ErrCancelled
	}

	return res, nil
}

func (d *Deflaker) begin() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == scheduler.StateRunning {
		return ErrAlreadyRunning
	}

	d.state = scheduler.StateRunning

	return nil
}

func (d *Deflaker) end(state scheduler.State) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.state = state
}
