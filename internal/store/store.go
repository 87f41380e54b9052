package store

import "time"

// Record is the latest known state of one poll chain.
//
// Record is the storage representation of a poll event, shaped for JSON
// serialization (used by the REST API and SSE). It is decoupled from the
// pollkit event type to allow independent evolution.
type Record struct {
	// ID is the poll chain identifier.
	ID string `json:"id"`

	// Name is the configured display name of the poll, if any.
	Name string `json:"name,omitempty"`

	// URL is the polled URL.
	URL string `json:"url"`

	// Event is the name of the most recent event (e.g. "pollSent", "pollDone").
	Event string `json:"event"`

	// Attempt is the number of requests issued so far.
	Attempt int `json:"attempt"`

	// RemainingMs is the timeout budget left when the event was emitted.
	RemainingMs int64 `json:"remaining_ms"`

	// StatusCode is the HTTP status of the response attached to the event.
	// Zero when the event carries no response.
	StatusCode int `json:"status_code,omitempty"`

	// ResponseTimeMs is the latency of the attached response in milliseconds.
	ResponseTimeMs int64 `json:"response_time_ms,omitempty"`

	// Terminal reports whether the chain has ended.
	Terminal bool `json:"terminal"`

	// Outcome is how the chain ended ("done", "error", "timeout",
	// "abandoned", "cancelled"). Empty while it is running.
	Outcome string `json:"outcome,omitempty"`

	// Error describes why the chain ended without success, if it did.
	Error string `json:"error,omitempty"`

	// At is when the event was emitted.
	At time.Time `json:"at"`
}

// Store defines the interface for storing and subscribing to poll records.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Update stores a record and notifies all subscribers.
	// Records are keyed by ID, so later updates replace earlier ones.
	Update(record Record)

	// Amend replaces the stored record without notifying subscribers.
	// Use it to attach final state that is not itself an event.
	Amend(record Record)

	// Get returns the record for a poll ID.
	Get(id string) (Record, bool)

	// GetAll returns all currently stored records.
	// The returned slice is a snapshot; modifications do not affect the store.
	GetAll() []Record

	// Subscribe returns a channel that receives record updates.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Record

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Record)
}
