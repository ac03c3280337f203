package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthRequired is reported when no token could be obtained. No
	// request is sent in that case.
	ErrAuthRequired = errors.New("authentication required")

	// ErrUnauthorized is reported when the server rejects the token.
	ErrUnauthorized = errors.New("server rejected credentials")

	// ErrUpstream is reported when the server ends the stream with an error
	// event.
	ErrUpstream = errors.New("server reported an upstream failure")

	// ErrStreamIncomplete is reported when the connection closes cleanly
	// before the end event.
	ErrStreamIncomplete = errors.New("stream closed before end event")

	// ErrMalformedEvent is logged for message events whose payload cannot be
	// decoded, and reported once Config.MaxMalformed of them were seen.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrContentType is reported when the response is not an event stream.
	ErrContentType = errors.New("response is not an event stream")
)

// StatusError is returned for non-200 responses other than 401 and 403.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Retryable reports whether reconnecting may succeed.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// transportError marks dial and read failures, which are retried.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var te *transportError
	if errors.As(err, &te) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.Retryable()
}
