// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress carries real-time run events from the scheduler to observers such as
// the interactive view. Reporting never blocks a worker: events are dropped rather than
// delaying a run.
package progress
