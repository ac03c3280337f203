// Package sse reads and writes Server-Sent Events.
//
// Reader parses an event stream (the stream client and the openai and
// anthropic upstream generators consume it). Writer frames events onto an
// io.Writer and flushes each one as soon as it is written (the stream
// encoder produces it).
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import "time"

// ContentType is the media type of an SSE response body.
const ContentType = "text/event-stream"

// Event represents a single SSE event, delimited by a blank line in the byte
// stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type per the SSE spec.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n" (per the SSE spec, multiple data fields are joined
	// with a single newline).
	Data string

	// ID is the last event ID of the stream when the event was dispatched.
	// It carries over from earlier events that set one.
	ID string

	// Retry is the reconnection time announced by the stream so far, zero
	// when none was announced. The writer emits it when non-zero.
	Retry time.Duration
}

// IsMessage reports whether the event carries the default "message" type.
func (e *Event) IsMessage() bool {
	return e.Type == "" || e.Type == "message"
}
