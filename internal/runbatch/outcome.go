// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"fmt"
	"strings"
	"time"
)

// PassMessage is the message of every passing run.
const PassMessage = "PASS"

// Status is the terminal state of a single run.
type Status int

const (
	// StatusPassed means the command exited with status 0.
	StatusPassed Status = iota
	// StatusFailed means the command exited non-zero or exceeded its timeout.
	StatusFailed
	// StatusErrored means the command could not be started at all.
	StatusErrored
	// StatusCancelled means the run was killed because the context was cancelled.
	// Cancelled runs are not part of the result log.
	StatusCancelled
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "errored"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is the result of one run of the command.
type Outcome struct {
	Index       int           // 1-based run index
	Passed      bool          // True if the command exited with status 0
	Message     string        // PASS, or FAIL (run N) followed by the captured stderr
	Status      Status        // Terminal state of the run
	ExitCode    int           // Exit code, -1 if the process did not exit normally
	CommandLine string        // The command after counter substitution
	StdOut      []byte        // Captured standard output
	StdErr      []byte        // Captured standard error
	Err         error         // Execution error, nil for a plain pass or fail
	Duration    time.Duration // Wall time of the run
}

// Failed reports whether the outcome counts as a failure for stop and exit code purposes.
func (o Outcome) Failed() bool {
	return o.Status == StatusFailed || o.Status == StatusErrored
}

// FailMessage builds the message of a failed run: "FAIL (run <index>)" followed by
// detail on the next line when detail is not blank.
func FailMessage(index int, detail string) string {
	msg := fmt.Sprintf("FAIL (run %d)", index)

	detail = strings.TrimRight(detail, " \t\r\n")
	if strings.TrimSpace(detail) == "" {
		return msg
	}

	return msg + "\n" + detail
}
