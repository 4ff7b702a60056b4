// Package events broadcasts engine lifecycle events to observers over
// WebSocket, mainly for dashboards and development tooling.
package events

import "time"

// Type categorizes an engine event.
type Type string

const (
	TypeGenerationStarted   Type = "generation_started"
	TypeGenerationSucceeded Type = "generation_succeeded"
	TypeGenerationFailed    Type = "generation_failed"
	TypeInvalidated         Type = "invalidated"
)

// Event describes one engine state change.
type Event struct {
	Type Type `json:"type"`

	// Route is the canonical pattern of the affected route.
	Route string `json:"route,omitempty"`

	// Key is the affected cache key.
	Key string `json:"key,omitempty"`

	// Background is true for background refreshes, false for blocking
	// generations.
	Background bool `json:"background,omitempty"`

	// Elapsed is the generation duration, for completion events.
	Elapsed time.Duration `json:"elapsed,omitempty"`

	// Error is the failure message, for failure events.
	Error string `json:"error,omitempty"`

	// Time is when the event occurred.
	Time time.Time `json:"time"`
}

// Publisher receives engine events. Implementations must not block.
type Publisher interface {
	Publish(Event)
}
