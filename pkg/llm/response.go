package llm

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrorResponse is the JSON body returned by HTTP handlers on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusError is returned when an upstream answers with a non-200 status.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s upstream returned status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s upstream returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// StreamError is returned when an upstream reports a failure in the middle of
// a stream.
type StreamError struct {
	Provider string
	Type     string
	Message  string
}

func (e *StreamError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("%s stream error: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s stream error (%s): %s", e.Provider, e.Type, e.Message)
}

// maxErrorBody bounds how much of a failed upstream response is kept.
const maxErrorBody = 4 << 10

// CheckResponse returns a *StatusError and closes the body when resp is not
// a 200. On success the body is left open for the caller to stream.
func CheckResponse(provider string, resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
