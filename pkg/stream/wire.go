package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/papercomputeco/ideas/pkg/sse"
)

const (
	// EventEnd labels the terminal event of a successful stream.
	EventEnd = "end"

	// EventError labels the terminal event of a failed stream.
	EventError = "error"

	// Sentinel is the data of the end event.
	Sentinel = "[DONE]"
)

// ErrEmptyChunk is returned by DecodeChunk for payloads without a chunk.
var ErrEmptyChunk = errors.New("chunk payload has no chunk")

// ChunkPayload is the JSON data of a message event.
type ChunkPayload struct {
	Chunk string `json:"chunk"`
}

// ErrorPayload is the JSON data of an error event.
type ErrorPayload struct {
	Error string `json:"error"`
}

// EncodeChunk builds the message event carrying fragment.
func EncodeChunk(fragment string) (sse.Event, error) {
	data, err := json.Marshal(ChunkPayload{Chunk: fragment})
	if err != nil {
		return sse.Event{}, fmt.Errorf("encoding chunk: %w", err)
	}
	return sse.Event{Data: string(data)}, nil
}

// DecodeChunk extracts the fragment from a message event payload.
func DecodeChunk(data string) (string, error) {
	// A *string tells a missing field apart from an empty one.
	var payload struct {
		Chunk *string `json:"chunk"`
	}
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return "", fmt.Errorf("decoding chunk: %w", err)
	}
	if payload.Chunk == nil {
		return "", ErrEmptyChunk
	}
	return *payload.Chunk, nil
}

// EndEvent is the terminal event of a successful stream.
func EndEvent() sse.Event {
	return sse.Event{Type: EventEnd, Data: Sentinel}
}

// ErrorEvent is the terminal event of a failed stream.
func ErrorEvent(message string) sse.Event {
	data, _ := json.Marshal(ErrorPayload{Error: message})
	return sse.Event{Type: EventError, Data: string(data)}
}

// DecodeError extracts the message of an error event. Payloads that are not
// JSON are returned as is.
func DecodeError(data string) string {
	var payload ErrorPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil || payload.Error == "" {
		return data
	}
	return payload.Error
}

// IsTerminal reports whether ev ends a successful stream: the end event, or
// a plain message carrying the sentinel. Typed events such as error never
// count as success, whatever their data.
func IsTerminal(ev *sse.Event) bool {
	return ev.Type == EventEnd || (ev.IsMessage() && ev.Data == Sentinel)
}
