// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/deflake/internal/ctxlog"
)

// Watch monitors the signal channel until it is closed, or until ctx is done
// without any signal having been received.
// The first signal cancels the context with ErrInterrupted as the cause.
// A second signal of the same type calls Exit with ForcedExitCode.
func Watch(ctx context.Context, sigCh <-chan os.Signal, cancel context.CancelCauseFunc) {
	logger := ctxlog.Logger(ctx)
	done := ctx.Done()
	sigMap := make(map[os.Signal]struct{})

	for {
		select {
		case <-done:
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}

			if _, seen := sigMap[sig]; seen {
				logger.Info("watchdog", "detail", "received second signal of type, forcefully terminating", "signal", sig.String())
				Exit(ForcedExitCode)

				return
			}

			logger.Info("watchdog", "detail", "received signal, cancelling runs", "signal", sig.String())

			sigMap[sig] = struct{}{}
			done = nil

			cancel(fmt.Errorf("%w: %s", ErrInterrupted, sig.String()))
		}
	}
}
