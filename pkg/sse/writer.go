package sse

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// ErrWriterClosed is returned by Writer methods after Close.
var ErrWriterClosed = errors.New("sse: writer closed")

// Flusher is implemented by destinations that buffer writes, such as a
// bufio.Writer. http.Flusher is adapted by NewWriter.
type Flusher interface {
	Flush() error
}

type httpFlusher interface {
	Flush()
}

// Writer frames events onto an io.Writer. Each event is written in full and
// flushed before WriteEvent returns so that the client receives it without
// waiting for later events.
//
// Writer is safe for concurrent use but the stream encoder only ever writes
// from one goroutine.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	flush  func() error
	closed bool
}

// NewWriter returns a Writer framing events onto w.
func NewWriter(w io.Writer) *Writer {
	sw := &Writer{w: w}

	switch f := w.(type) {
	case Flusher:
		sw.flush = f.Flush
	case httpFlusher:
		sw.flush = func() error { f.Flush(); return nil }
	default:
		sw.flush = func() error { return nil }
	}

	return sw
}

// WriteEvent writes ev as one SSE frame. Data containing newlines is split
// into several "data:" lines, which readers join back with "\n".
func (w *Writer) WriteEvent(ev Event) error {
	var b strings.Builder

	if ev.ID != "" {
		writeField(&b, "id", ev.ID)
	}
	if ev.Type != "" {
		writeField(&b, "event", ev.Type)
	}
	if ev.Retry > 0 {
		writeField(&b, "retry", strconv.FormatInt(ev.Retry.Milliseconds(), 10))
	}
	for line := range strings.SplitSeq(ev.Data, "\n") {
		writeField(&b, "data", strings.TrimSuffix(line, "\r"))
	}
	b.WriteByte('\n')

	return w.write(b.String())
}

// WriteComment writes a comment line, typically as a keep-alive.
func (w *Writer) WriteComment(text string) error {
	return w.write(": " + strings.ReplaceAll(text, "\n", " ") + "\n\n")
}

// Close marks the writer closed. It does not close the destination.
func (w *Writer) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

func (w *Writer) write(frame string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	if _, err := io.WriteString(w.w, frame); err != nil {
		return fmt.Errorf("writing sse frame: %w", err)
	}
	if err := w.flush(); err != nil {
		return fmt.Errorf("flushing sse frame: %w", err)
	}

	return nil
}

func writeField(b *strings.Builder, name, value string) {
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteByte('\n')
}
