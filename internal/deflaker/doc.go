// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package deflaker ties a configuration, a command runner, the scheduler and the
// aggregator together into a single session.
//
// A session moves from idle to running and ends completed, failed-stop or cancelled.
// A failing command is not an error: it is reported in the Result. Run only returns
// an error when the session could not be run or was cancelled.
package deflaker
