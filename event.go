package pollkit

import (
	"time"

	"github.com/jpalmerr/pollkit/internal/poller"
)

// EventKind identifies what happened in a poll chain.
//
// The values double as event names for browser listeners, so they can be
// forwarded over SSE unchanged.
type EventKind string

const (
	// EventSent is emitted once per HTTP request, right after it is dispatched.
	EventSent EventKind = poller.KindSent

	// EventDone is emitted when the predicate is satisfied. Its [Event.Name]
	// is the caller's completion event name, if one was set.
	EventDone EventKind = poller.KindDone

	// EventError is emitted when a poll request gets a status of 400 or above.
	// The failing response is attached. No further requests are issued.
	EventError EventKind = poller.KindError

	// EventTimeout is emitted when the timeout budget is exhausted before the
	// predicate was satisfied. No request is issued for that step.
	EventTimeout EventKind = poller.KindTimeout
)

// String returns the string representation of the kind.
func (k EventKind) String() string {
	return string(k)
}

// Terminal reports whether an event of this kind ends its chain.
func (k EventKind) Terminal() bool {
	return k != EventSent
}

// Event is one notification from a poll chain.
type Event struct {
	// PollID identifies the chain; see [WithPollID] and [Poll.ID].
	PollID string

	// Kind is what happened.
	Kind EventKind

	// Name equals Kind, except for [EventDone] when [WithDoneEvent] set a
	// custom completion name.
	Name string

	// Attempt is the number of requests issued so far in this chain.
	Attempt int

	// Remaining is the timeout budget left when the event was emitted.
	Remaining time.Duration

	// Response is the response that completed ([EventDone]) or failed
	// ([EventError]) the chain. Nil for other kinds.
	Response *Response

	// Detail is the caller-supplied completion detail on [EventDone].
	Detail any

	// At is when the event was emitted.
	At time.Time
}

// toPublicEvent converts a poller event to the public [Event] type.
func toPublicEvent(ev poller.EventInfo) Event {
	var resp *Response
	if ev.Response != nil {
		resp = toPublicResponse(*ev.Response)
	}
	return Event{
		PollID:    ev.ChainID,
		Kind:      EventKind(ev.Kind),
		Name:      ev.Name,
		Attempt:   ev.Attempt,
		Remaining: ev.Remaining,
		Response:  resp,
		Detail:    ev.Detail,
		At:        ev.At,
	}
}
