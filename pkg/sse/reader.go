package sse

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"
)

// Reader parses an event stream one event at a time.
//
// It follows the dispatch rules of the SSE standard: a blank line ends a
// block, only blocks carrying at least one data line are returned, and the
// last event ID and reconnection time persist across events. Lines have no
// length limit, so a fragment of any size arrives as one event.
type Reader struct {
	src    *bufio.Reader
	lastID string
	retry  time.Duration
}

// NewReader returns a Reader over src.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: bufio.NewReaderSize(src, 64<<10)}
}

// Next blocks until the next event is complete and returns it. At the end
// of the source it returns io.EOF; a final block without its blank line is
// still returned first.
func (r *Reader) Next() (*Event, error) {
	var (
		eventType string
		data      strings.Builder
		hasData   bool
	)

	dispatch := func() *Event {
		return &Event{Type: eventType, Data: data.String(), ID: r.lastID, Retry: r.retry}
	}

	for {
		line, err := r.readLine()
		if errors.Is(err, io.EOF) && hasData {
			return dispatch(), nil
		}
		if err != nil {
			return nil, err
		}

		if line == "" {
			if hasData {
				return dispatch(), nil
			}
			eventType = ""
			continue
		}

		field, value := splitField(line)
		switch field {
		case "":
			// comment
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "event":
			eventType = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				r.lastID = value
			}
		case "retry":
			if ms, err := strconv.ParseUint(value, 10, 32); err == nil {
				r.retry = time.Duration(ms) * time.Millisecond
			}
		}
	}
}

// readLine returns the next line without its terminator. A last line that
// lacks one is returned before io.EOF.
func (r *Reader) readLine() (string, error) {
	line, err := r.src.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

// LastEventID returns the most recent "id:" value seen on the stream.
func (r *Reader) LastEventID() string {
	return r.lastID
}

// Retry returns the most recent reconnection time announced by the server,
// zero when none was announced.
func (r *Reader) Retry() time.Duration {
	return r.retry
}

// splitField splits "field: value". One space after the colon is dropped,
// and a line without a colon is a field with an empty value.
func splitField(line string) (field, value string) {
	field, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	return field, strings.TrimPrefix(value, " ")
}
