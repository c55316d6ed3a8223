// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/deflake/internal/config"
	"github.com/matt-FFFFFF/deflake/internal/ctxlog"
	"github.com/matt-FFFFFF/deflake/internal/deflaker"
	"github.com/matt-FFFFFF/deflake/internal/progress"
)

const reporterBufferSize = 1024

// ErrUserQuit is the cancellation cause when the user quits the TUI during a session.
var ErrUserQuit = errors.New("user quit the interactive view")

// Session is a deflake session that can be run by the TUI.
type Session interface {
	Run(ctx context.Context) (*deflaker.Result, error)
}

var _ progress.Reporter = (*TUIReporter)(nil)

// TUIReporter implements progress.Reporter and forwards events to the TUI.
// Events are buffered so that Report never blocks a run.
type TUIReporter struct {
	program *tea.Program
	ch      *progress.ChannelReporter
}

// NewTUIReporter creates a new TUI progress reporter.
func NewTUIReporter(ctx context.Context, program *tea.Program) *TUIReporter {
	tr := &TUIReporter{
		program: program,
		ch:      progress.NewChannelReporter(ctx, reporterBufferSize),
	}

	tr.ch.Listen(progress.ListenerFunc(func(e progress.Event) {
		if tr.program != nil {
			tr.program.Send(ProgressEventMsg{Event: e})
		}
	}))

	return tr
}

// Report implements progress.Reporter.
func (tr *TUIReporter) Report(event progress.Event) {
	tr.ch.Report(event)
}

// Close implements progress.Reporter. Buffered events are delivered before it returns.
func (tr *TUIReporter) Close() {
	tr.ch.Close()
}

// Runner manages the TUI application and the session it displays.
type Runner struct {
	model          *Model
	program        *tea.Program
	reporter       *TUIReporter
	exitOnComplete bool
	mutex          sync.Mutex
}

// RunnerOption configures a Runner.
type RunnerOption func(*runnerOptions)

type runnerOptions struct {
	programOptions []tea.ProgramOption
	exitOnComplete bool
}

// WithProgramOptions passes options to the bubbletea program.
func WithProgramOptions(opts ...tea.ProgramOption) RunnerOption {
	return func(o *runnerOptions) {
		o.programOptions = append(o.programOptions, opts...)
	}
}

// WithExitOnComplete closes the TUI when the session finishes instead of
// waiting for the user to quit.
func WithExitOnComplete() RunnerOption {
	return func(o *runnerOptions) {
		o.exitOnComplete = true
	}
}

// NewRunner creates a new TUI runner for a session run with cfg.
func NewRunner(ctx context.Context, cfg *config.Config, opts ...RunnerOption) *Runner {
	o := &runnerOptions{
		programOptions: []tea.ProgramOption{tea.WithAltScreen()},
	}

	for _, opt := range opts {
		opt(o)
	}

	model := NewModel(cfg)
	program := tea.NewProgram(model, o.programOptions...)

	return &Runner{
		model:          model,
		program:        program,
		reporter:       NewTUIReporter(ctx, program),
		exitOnComplete: o.exitOnComplete,
	}
}

// Reporter returns the progress reporter to pass to the session.
func (r *Runner) Reporter() progress.Reporter {
	return r.reporter
}

// Model returns the TUI model.
func (r *Runner) Model() *Model {
	return r.model
}

// Run starts the TUI and the session. It returns the session result and error,
// and any error from the TUI itself. Quitting the TUI while the session is
// running cancels the session with ErrUserQuit.
func (r *Runner) Run(ctx context.Context, session Session) (*deflaker.Result, error, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	logger := ctxlog.Logger(ctx)

	sessionCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	type sessionResult struct {
		res *deflaker.Result
		err error
	}

	resultChan := make(chan sessionResult, 1)

	go func() {
		res, err := session.Run(sessionCtx)
		resultChan <- sessionResult{res: res, err: err}
	}()

	tuiDone := make(chan error, 1)

	go func() {
		_, err := r.program.Run()
		tuiDone <- err
	}()

	var (
		result sessionResult
		tuiErr error
	)

	select {
	case result = <-resultChan:
		r.reporter.Close()
		r.program.Send(SessionCompletedMsg{Result: result.res, Err: result.err})

		if r.exitOnComplete || ctx.Err() != nil {
			r.program.Quit()
		}

		tuiErr = <-tuiDone

	case tuiErr = <-tuiDone:
		logger.Info("interactive view closed before the session finished")
		cancel(ErrUserQuit)

		result = <-resultChan

		r.reporter.Close()

	case <-ctx.Done():
		result = <-resultChan

		r.reporter.Close()
		r.program.Quit()

		<-tuiDone
	}

	if errors.Is(tuiErr, tea.ErrProgramKilled) {
		tuiErr = nil
	}

	return result.res, result.err, tuiErr
}
