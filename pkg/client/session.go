package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/ideas/pkg/sse"
	"github.com/papercomputeco/ideas/pkg/stream"
)

// errAborted ends the connection loop once the handle was triggered.
var errAborted = errors.New("session aborted")

// Session is one mounted stream. Its buffer is written only by the session
// goroutine, and never after the end event or Abort.
type Session struct {
	client   *Client
	handle   *AbortHandle
	onUpdate func(State)
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	buf     strings.Builder
	aborted bool

	// retry is owned by the session goroutine.
	retry time.Duration

	done chan struct{}
}

// State returns a snapshot of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the session goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session ends or ctx is done, and returns the last
// state.
func (s *Session) Wait(ctx context.Context) (State, error) {
	select {
	case <-s.done:
		return s.State(), nil
	case <-ctx.Done():
		return s.State(), ctx.Err()
	}
}

// Unmount aborts the session regardless of its phase. It is safe to call
// any number of times, including after completion.
func (s *Session) Unmount() {
	s.handle.Abort()
}

// Handle returns the session's abort handle.
func (s *Session) Handle() *AbortHandle {
	return s.handle
}

// markAborted runs once, inside AbortHandle.Abort, before the connection is
// cancelled. After it returns update is a no-op. The Aborted state is
// published by publishAborted when the session goroutine exits.
func (s *Session) markAborted() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.aborted = true
	if !s.state.Phase.Terminal() {
		s.state.Phase = Aborted
	}
}

// publishAborted delivers the final snapshot of an aborted session. It runs
// on the session goroutine, after every other update.
func (s *Session) publishAborted() {
	s.mu.Lock()
	snapshot := s.state
	s.mu.Unlock()

	if snapshot.Phase == Aborted && s.onUpdate != nil {
		s.onUpdate(snapshot)
	}
}

// update applies fn to the state and publishes the result. It reports false,
// without applying fn, once the session was aborted.
func (s *Session) update(fn func(st *State)) bool {
	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		return false
	}
	fn(&s.state)
	snapshot := s.state
	s.mu.Unlock()

	if s.onUpdate != nil {
		s.onUpdate(snapshot)
	}
	return true
}

func (s *Session) run() {
	defer close(s.done)
	defer s.publishAborted()
	// Releases the connection context. A session that already ended keeps
	// its terminal phase.
	defer s.handle.Abort()

	ctx := s.handle.Context()

	if !s.update(func(st *State) { st.Phase = Authenticating }) {
		return
	}

	token, err := s.token(ctx)
	if err != nil {
		s.logger.Warn("no token available", "error", err)
		s.update(func(st *State) {
			st.Phase = Errored
			st.Text = AuthRequiredText
			st.Err = err
		})
		return
	}

	for attempt := 1; ; attempt++ {
		err := s.connect(ctx, token, attempt)
		if err == nil || errors.Is(err, errAborted) {
			return
		}
		if s.handle.Aborted() {
			// The parent context ended.
			return
		}

		if !retryable(err) || (s.client.maxRetries > 0 && attempt > s.client.maxRetries) {
			s.logger.Error("stream failed", "attempt", attempt, "error", err)
			s.fail(err)
			return
		}

		s.logger.Warn("stream interrupted, reconnecting",
			"attempt", attempt,
			"retry_in", s.retry,
			"error", err,
		)

		timer := time.NewTimer(s.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Session) token(ctx context.Context) (string, error) {
	if s.client.tokens == nil {
		return "", ErrAuthRequired
	}
	tok, err := s.client.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthRequired, err)
	}
	if tok == "" {
		return "", ErrAuthRequired
	}
	return tok, nil
}

// fail records a fatal error. The text received so far is kept.
func (s *Session) fail(err error) {
	s.update(func(st *State) {
		st.Phase = Errored
		st.Err = err
		if errors.Is(err, ErrUnauthorized) {
			st.Text = AuthRequiredText
		}
	})
}

// connect runs one connection attempt. It returns nil after the end event,
// errAborted when the handle fired, and the failure otherwise.
func (s *Session) connect(ctx context.Context, token string, attempt int) error {
	// A new connection replays the stream from the start.
	ok := s.update(func(st *State) {
		st.Phase = Connecting
		st.Attempt = attempt
		st.Text = LoadingText
		st.Err = nil
		s.buf.Reset()
	})
	if !ok {
		return errAborted
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.client.url, nil)
	if err != nil {
		return fmt.Errorf("creating stream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", sse.ContentType)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		if s.handle.Aborted() {
			return errAborted
		}
		return &transportError{err: fmt.Errorf("connecting: %w", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return &StatusError{StatusCode: resp.StatusCode}
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != sse.ContentType {
		return fmt.Errorf("%w: %q", ErrContentType, resp.Header.Get("Content-Type"))
	}

	if !s.update(func(st *State) { st.Phase = Streaming }) {
		return errAborted
	}
	s.logger.Debug("stream open", "attempt", attempt)

	return s.consume(sse.NewReader(resp.Body))
}

// consume applies events until the end event, an error or abort.
func (s *Session) consume(reader *sse.Reader) error {
	malformed := 0

	for {
		ev, err := reader.Next()
		if d := reader.Retry(); d > 0 {
			s.retry = d
		}
		if err != nil {
			if s.handle.Aborted() {
				return errAborted
			}
			if errors.Is(err, io.EOF) {
				return ErrStreamIncomplete
			}
			return &transportError{err: fmt.Errorf("reading stream: %w", err)}
		}

		switch {
		case stream.IsTerminal(ev):
			completed := s.update(func(st *State) { st.Phase = Completed })
			// Closing the connection is part of handling the end event.
			s.handle.Abort()
			if !completed {
				return errAborted
			}
			s.logger.Debug("stream completed", "bytes", s.bufLen())
			return nil

		case ev.Type == stream.EventError:
			return fmt.Errorf("%w: %s", ErrUpstream, stream.DecodeError(ev.Data))

		case !ev.IsMessage():
			s.logger.Debug("ignoring event", "type", ev.Type)
			continue
		}

		fragment, err := stream.DecodeChunk(ev.Data)
		if err != nil {
			malformed++
			s.logger.Warn("skipping malformed event", "data", ev.Data, "error", err)
			if s.client.maxMalformed > 0 && malformed >= s.client.maxMalformed {
				return fmt.Errorf("%w: %d events could not be decoded", ErrMalformedEvent, malformed)
			}
			continue
		}

		applied := s.update(func(st *State) {
			s.buf.WriteString(fragment)
			st.Text = s.buf.String()
		})
		if !applied {
			return errAborted
		}
	}
}

func (s *Session) bufLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}
