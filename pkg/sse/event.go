// Package sse provides an incremental Server-Sent Events (SSE) stream parser.
//
// Bytes arrive from a transport in chunks whose boundaries have nothing to do
// with event boundaries. A Reassembler re-segments those chunks into frames
// (the raw bytes of one event, ending in a blank line), a Decoder turns one
// frame into an Event, and a Stream ties both together behind a pull-style
// Next and a Go iterator.
//
// JSON payload interpretation, reconnection and HTTP handling are left to the
// caller.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import (
	"strconv"
	"time"
)

// DefaultEventType is the event type assigned when a frame has no "event:"
// field, or an empty one.
const DefaultEventType = "message"

// Event represents a single dispatched SSE event.
type Event struct {
	// ID is the last "id:" value in the frame. Empty means absent.
	ID string

	// Type is the "event:" value, DefaultEventType when the frame had none.
	Type string

	// Data is every "data:" value in the frame joined with "\n".
	Data string

	// Retry is the raw "retry:" value, a reconnection hint in milliseconds.
	// The parser never interprets it. Empty means absent.
	Retry string
}

// RetryDuration parses Retry as a non-negative number of milliseconds.
// The second return value is false when Retry is absent or not a valid
// number.
func (e *Event) RetryDuration() (time.Duration, bool) {
	if e.Retry == "" {
		return 0, false
	}

	ms, err := strconv.ParseUint(e.Retry, 10, 63)
	if err != nil {
		return 0, false
	}

	return time.Duration(ms) * time.Millisecond, true
}
