// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package scheduler

// State is the lifecycle state of a deflake session.
type State int

const (
	// StateIdle is the state before Run is called.
	StateIdle State = iota
	// StateRunning is the state while runs are being dispatched.
	StateRunning
	// StateCompleted means every run was dispatched and finished.
	StateCompleted
	// StateFailedStop means a failure stopped further dispatching.
	StateFailedStop
	// StateCancelled means the context was cancelled and in-flight runs were killed.
	StateCancelled
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailedStop:
		return "failed-stop"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is a terminal state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailedStop || s == StateCancelled
}

// Strategy is the concurrency strategy selected by the pool size.
type Strategy int

const (
	// Sequential runs one command at a time.
	Sequential Strategy = iota
	// Pooled runs up to PoolSize commands concurrently.
	Pooled
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	if s == Pooled {
		return "pooled"
	}

	return "sequential"
}
