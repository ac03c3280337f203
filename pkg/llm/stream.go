package llm

import (
	"context"
	"io"
	"sync"
)

// TextStream is a lazy, finite sequence of text fragments produced by an
// upstream model. It is consumed once and cannot be restarted.
type TextStream interface {
	// Next blocks until the next non-empty fragment is available. It returns
	// io.EOF once the upstream signalled completion.
	Next(ctx context.Context) (string, error)

	// Close releases the upstream connection. It may be called at any time,
	// including before the stream is exhausted, and more than once.
	Close() error
}

// BodyStream adapts a decode function over an upstream response body into a
// TextStream. decode returns the next fragment, which may be empty for
// events that carry no text, or io.EOF when the upstream is done.
type BodyStream struct {
	body   io.Closer
	decode func() (string, error)

	once sync.Once
	err  error
}

// NewBodyStream returns a TextStream reading fragments with decode and
// closing body on Close.
func NewBodyStream(body io.Closer, decode func() (string, error)) *BodyStream {
	return &BodyStream{body: body, decode: decode}
}

func (s *BodyStream) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		fragment, err := s.decode()
		if err != nil {
			return "", err
		}
		if fragment != "" {
			return fragment, nil
		}
	}
}

func (s *BodyStream) Close() error {
	s.once.Do(func() {
		s.err = s.body.Close()
	})
	return s.err
}
