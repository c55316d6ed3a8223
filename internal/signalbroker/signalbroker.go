// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package signalbroker listens for OS signals that should terminate the process.
// By default it listens for os.Interrupt, syscall.SIGINT, syscall.SIGTERM, and syscall.SIGQUIT.
//
// Watch turns the first signal into a context cancellation so the scheduler can tear
// down its workers, and exits the process if a second signal of the same type arrives.
package signalbroker

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/matt-FFFFFF/deflake/internal/ctxlog"
)

// ErrInterrupted is the cancellation cause set when a termination signal is received.
var ErrInterrupted = errors.New("interrupted by signal")

// ForcedExitCode is the exit status used when a second signal forces termination.
const ForcedExitCode = 130

var termSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGQUIT,
	os.Interrupt,
}

// Exit is called when a duplicate signal is received. Tests replace it.
var Exit = os.Exit

// New creates a new signal broker that listens for OS signals that should terminate the process.
func New(ctx context.Context, sigs ...os.Signal) chan os.Signal {
	ch := make(chan os.Signal, 1)

	if len(sigs) == 0 {
		sigs = termSignals
	}

	ctxlog.Debug(ctx, "signalbroker", "detail", "creating signal broker", "signals", sigs)
	signal.Notify(ch, sigs...)

	return ch
}

// Stop stops signal delivery to ch.
func Stop(ch chan os.Signal) {
	signal.Stop(ch)
}
