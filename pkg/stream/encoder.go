// Package stream re-frames an upstream fragment stream as the Server-Sent
// Events served to idea clients.
//
// Every fragment becomes one unlabeled message event whose data is
// {"chunk":"<fragment>"}. A successful stream ends with exactly one
// "event: end" / "data: [DONE]" event; a failed one ends with an
// "event: error" event instead.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/ideas/pkg/llm"
	"github.com/papercomputeco/ideas/pkg/sse"
)

var (
	// ErrUpstream wraps failures of the upstream generator.
	ErrUpstream = errors.New("upstream generation failed")

	// ErrClientGone wraps write failures, which mean the client disconnected.
	ErrClientGone = errors.New("client disconnected")
)

// Config is the explicit configuration of an Encoder.
type Config struct {
	Agent  llm.Agent
	Prompt string
}

// Result describes one completed stream.
type Result struct {
	ID          string
	Agent       string
	Model       string
	Prompt      string
	Text        string
	Fragments   int
	StartedAt   time.Time
	CompletedAt time.Time
}

// Observer is notified of encoder progress. Metrics implement it.
type Observer interface {
	Fragment()
}

// Encoder drives one generation per Encode call.
type Encoder struct {
	cfg      Config
	gen      llm.Generator
	logger   *slog.Logger
	observer Observer
}

// NewEncoder returns an Encoder generating with gen.
func NewEncoder(cfg Config, gen llm.Generator, logger *slog.Logger) *Encoder {
	if cfg.Prompt == "" {
		cfg.Prompt = llm.DefaultPrompt
	}
	if cfg.Agent == (llm.Agent{}) {
		cfg.Agent = llm.DefaultAgent()
	}
	return &Encoder{cfg: cfg, gen: gen, logger: logger}
}

// WithObserver sets the observer notified for every fragment written.
func (e *Encoder) WithObserver(o Observer) *Encoder {
	e.observer = o
	return e
}

// Encode runs one generation and writes it to w. Fragments are written and
// flushed one by one, in upstream order. On success the end event is the
// last write. An upstream failure writes an error event and returns an error
// wrapping ErrUpstream. A write failure cancels the upstream and returns an
// error wrapping ErrClientGone.
func (e *Encoder) Encode(ctx context.Context, w *sse.Writer) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := &Result{
		ID:        uuid.NewString(),
		Agent:     e.cfg.Agent.Name,
		Model:     e.cfg.Agent.Model,
		Prompt:    e.cfg.Prompt,
		StartedAt: time.Now().UTC(),
	}

	text, err := e.gen.Generate(ctx, &llm.GenerateRequest{
		Agent:  e.cfg.Agent,
		Prompt: e.cfg.Prompt,
		Stream: true,
	})
	if err != nil {
		return nil, e.fail(w, result, err)
	}
	defer text.Close()

	var buf strings.Builder
	for {
		fragment, err := text.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, e.fail(w, result, err)
		}
		if fragment == "" {
			continue
		}

		ev, err := EncodeChunk(fragment)
		if err != nil {
			return nil, err
		}
		if err := w.WriteEvent(ev); err != nil {
			cancel()
			e.logger.Debug("client went away mid-stream",
				"id", result.ID,
				"fragments", result.Fragments,
				"error", err,
			)
			return nil, fmt.Errorf("%w: %w", ErrClientGone, err)
		}

		buf.WriteString(fragment)
		result.Fragments++
		if e.observer != nil {
			e.observer.Fragment()
		}
	}

	if err := w.WriteEvent(EndEvent()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClientGone, err)
	}

	result.Text = buf.String()
	result.CompletedAt = time.Now().UTC()

	e.logger.Debug("stream completed",
		"id", result.ID,
		"provider", e.gen.Name(),
		"fragments", result.Fragments,
		"duration", result.CompletedAt.Sub(result.StartedAt),
	)

	return result, nil
}

// fail reports an upstream failure to the client with an error event.
func (e *Encoder) fail(w *sse.Writer, result *Result, cause error) error {
	err := fmt.Errorf("%w: %w", ErrUpstream, cause)

	e.logger.Error("upstream generation failed",
		"id", result.ID,
		"provider", e.gen.Name(),
		"fragments", result.Fragments,
		"error", cause,
	)

	if werr := w.WriteEvent(ErrorEvent(ErrUpstream.Error())); werr != nil {
		e.logger.Debug("could not deliver error event", "id", result.ID, "error", werr)
	}
	return err
}
