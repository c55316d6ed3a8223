// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"time"
)

// Event represents a real-time update from a deflake session.
type Event struct {
	Index     int       // 1-based run index, zero for session level events
	Type      EventType // Event type indicating what happened
	Message   string    // Human-readable status message
	Timestamp time.Time // When the event occurred
	Data      EventData // Type-specific data
}

// EventType represents the type of progress event.
type EventType int

const (
	// EventStarted indicates a run has been dispatched.
	EventStarted EventType = iota
	// EventPassed indicates a run exited with status 0.
	EventPassed
	// EventFailed indicates a run failed or could not be started.
	EventFailed
	// EventFinished indicates the session reached a terminal state.
	EventFinished
)

// String implements the Stringer interface for EventType.
func (et EventType) String() string {
	switch et {
	case EventStarted:
		return "started"
	case EventPassed:
		return "passed"
	case EventFailed:
		return "failed"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// EventData contains type-specific information for progress events.
type EventData struct {
	// For EventPassed/EventFailed
	ExitCode int           // Exit code of the run
	Duration time.Duration // Wall time of the run
	Error    error         // Execution error, if any

	// For EventFinished
	State string // Terminal state of the session
}

// Reporter is the interface for sending progress events.
type Reporter interface {
	// Report sends a progress event. Implementations must be non-blocking
	// and handle the case where the receiver might not be listening.
	Report(event Event)
	// Close signals that no more events will be sent and cleans up resources.
	Close()
}

// Listener receives events forwarded by a ChannelReporter.
type Listener interface {
	OnEvent(event Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Event)

// OnEvent implements Listener.
func (f ListenerFunc) OnEvent(e Event) {
	f(e)
}

// NewEvent creates an event stamped with the current time.
func NewEvent(index int, t EventType, msg string) Event {
	return Event{
		Index:     index,
		Type:      t,
		Message:   msg,
		Timestamp: time.Now(),
	}
}
