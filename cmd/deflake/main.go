// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the deflake command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/deflake"
	"github.com/matt-FFFFFF/deflake/cmd/deflake/run"
	"github.com/matt-FFFFFF/deflake/internal/ctxlog"
	"github.com/matt-FFFFFF/deflake/internal/signalbroker"
)

func main() {
	ctx, cancel := context.WithCancelCause(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)
	defer cancel(nil)

	sigCh := signalbroker.New(ctx)
	defer signalbroker.Stop(sigCh)

	go signalbroker.Watch(ctx, sigCh, cancel)

	cmd := run.NewCommand()
	cmd.Version = fmt.Sprintf("%s (commit: %s)", deflake.Version, deflake.Commit)

	err := cmd.Run(ctx, os.Args) // Exit codes are handled by the cli framework

	if ctx.Err() != nil {
		ctxlog.Logger(ctx).Debug("command terminated due to cancellation", "cause", context.Cause(ctx))
		os.Exit(1)
	}

	if err != nil {
		ctxlog.Logger(ctx).Error("command execution failed", "error", err)
		os.Exit(1)
	}
}
