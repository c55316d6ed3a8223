// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package aggregate collects run outcomes into the result log.
//
// Outcomes arrive in completion order, which differs from index order when runs
// execute concurrently. The aggregator keeps both: Log and Outcomes are sorted by
// run index for reporting, Arrivals preserves the order in which runs finished.
package aggregate

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/matt-FFFFFF/deflake/internal/color"
	"github.com/matt-FFFFFF/deflake/internal/progress"
	"github.com/matt-FFFFFF/deflake/internal/runbatch"
)

// Summary counts the recorded outcomes.
type Summary struct {
	Total  int `yaml:"total"`
	Passed int `yaml:"passed"`
	Failed int `yaml:"failed"`
}

// Aggregator records outcomes. It is the only owner of the result log;
// Record is safe for concurrent use.
type Aggregator struct {
	mu       sync.Mutex
	arrivals []runbatch.Outcome
	out      io.Writer
	quiet    bool
	reporter progress.Reporter
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithOutput writes each recorded outcome to w as it arrives.
func WithOutput(w io.Writer) Option {
	return func(a *Aggregator) {
		a.out = w
	}
}

// WithQuiet suppresses the per-outcome output. Outcomes are still recorded.
func WithQuiet(quiet bool) Option {
	return func(a *Aggregator) {
		a.quiet = quiet
	}
}

// WithReporter sends a progress event for every recorded outcome.
func WithReporter(r progress.Reporter) Option {
	return func(a *Aggregator) {
		a.reporter = r
	}
}

// New creates an empty Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		out: io.Discard,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Record appends a finished outcome, prints it unless quiet, and reports it.
// Cancelled outcomes are ignored: a run torn down by an interrupt has no verdict.
// It returns false if the outcome was ignored.
func (a *Aggregator) Record(o runbatch.Outcome) bool {
	if o.Status == runbatch.StatusCancelled {
		return false
	}

	a.mu.Lock()
	a.arrivals = append(a.arrivals, o)

	if !a.quiet {
		fmt.Fprintln(a.out, colorize(o)) //nolint:errcheck
	}
	a.mu.Unlock()

	if a.reporter != nil {
		a.reporter.Report(event(o))
	}

	return true
}

// Log returns the messages of all recorded outcomes in ascending run index order.
func (a *Aggregator) Log() []string {
	outcomes := a.Outcomes()
	log := make([]string, len(outcomes))

	for i, o := range outcomes {
		log[i] = o.Message
	}

	return log
}

// Outcomes returns a copy of the recorded outcomes in ascending run index order.
func (a *Aggregator) Outcomes() []runbatch.Outcome {
	outcomes := a.Arrivals()
	slices.SortStableFunc(outcomes, func(x, y runbatch.Outcome) int {
		return cmp.Compare(x.Index, y.Index)
	})

	return outcomes
}

// Arrivals returns a copy of the recorded outcomes in the order they were recorded.
func (a *Aggregator) Arrivals() []runbatch.Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()

	return slices.Clone(a.arrivals)
}

// FirstFailure returns the first failed outcome in arrival order.
func (a *Aggregator) FirstFailure() (runbatch.Outcome, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := slices.IndexFunc(a.arrivals, runbatch.Outcome.Failed)
	if i < 0 {
		return runbatch.Outcome{}, false
	}

	return a.arrivals[i], true
}

// HasFailure reports whether any recorded outcome failed.
func (a *Aggregator) HasFailure() bool {
	_, ok := a.FirstFailure()
	return ok
}

// Summary counts the recorded outcomes.
func (a *Aggregator) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Summary{Total: len(a.arrivals)}

	for _, o := range a.arrivals {
		if o.Passed {
			s.Passed++
			continue
		}

		s.Failed++
	}

	return s
}

func colorize(o runbatch.Outcome) string {
	if o.Passed {
		return color.Pass(o.Message)
	}

	return color.Fail(o.Message)
}

func event(o runbatch.Outcome) progress.Event {
	t := progress.EventFailed
	if o.Passed {
		t = progress.EventPassed
	}

	e := progress.NewEvent(o.Index, t, o.Message)
	e.Data.ExitCode = o.ExitCode
	e.Data.Duration = o.Duration
	e.Data.Error = o.Err

	return e
}
