// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runbatch runs a single instance of the target command.
//
// A ShellCommand holds the command template. Each call to Run substitutes the
// counter token with the run index, executes the result through a shell in its own
// process group, and converts the exit status into an Outcome.
// A failing command is data, not an error: Run never returns an error value.
package runbatch
