// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui provides an interactive terminal view of a deflake session.
//
// The view shows a progress bar over all runs, live pass/fail counters and one
// line per dispatched run. It is driven by progress events: a TUIReporter is passed
// to the session and forwards every event to the bubbletea program.
//
// Keys:
//   - ↑/↓, j/k, PgUp/PgDn: scroll the run list
//   - q, ctrl+c: quit (a running session is cancelled)
package tui
