// Package script replays a fixed list of fragments as if an upstream model
// produced them. It backs local demos and tests that must not reach a real
// provider.
package script

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/ideas/pkg/llm"
)

// DefaultIdea is replayed, word by word, when no fragments are configured.
const DefaultIdea = `# AgentOps Ledger

## The idea
A bookkeeping service for AI agents that records every tool call, cost and
decision, so finance teams can audit autonomous spend.

## Why now
- Agent fleets already make purchases and API calls on their own
- Nobody can answer "what did the agents spend this month, and why?"

## How it works
- Drop-in proxy in front of model and tool APIs
- Per-agent budgets with automatic pause when exceeded
- Monthly ledger export for accounting systems
`

// Config configures a scripted generator.
type Config struct {
	// Fragments are replayed in order. Empty means DefaultIdea split into
	// words.
	Fragments []string

	// Delay is waited before each fragment.
	Delay time.Duration

	// Err, when set, is returned after the fragments instead of io.EOF.
	Err error
}

type provider struct {
	fragments []string
	delay     time.Duration
	err       error

	mu    sync.Mutex
	calls int
}

func New(cfg Config) *provider {
	fragments := cfg.Fragments
	if len(fragments) == 0 {
		fragments = Split(DefaultIdea)
	}
	return &provider{
		fragments: fragments,
		delay:     cfg.Delay,
		err:       cfg.Err,
	}
}

func (p *provider) Name() string {
	return "script"
}

// Calls returns how many generations have been started.
func (p *provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *provider) Generate(ctx context.Context, req *llm.GenerateRequest) (llm.TextStream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	return &stream{
		fragments: p.fragments,
		delay:     p.delay,
		err:       p.err,
		closed:    make(chan struct{}),
	}, nil
}

// Split cuts text into word-sized fragments, each keeping its trailing
// whitespace, so that concatenating them yields text again.
func Split(text string) []string {
	var (
		fragments []string
		start     int
	)
	for i := 1; i < len(text); i++ {
		if isSpace(text[i-1]) && !isSpace(text[i]) {
			fragments = append(fragments, text[start:i])
			start = i
		}
	}
	if start < len(text) {
		fragments = append(fragments, text[start:])
	}
	return fragments
}

func isSpace(b byte) bool {
	return strings.IndexByte(" \t\n", b) >= 0
}

type stream struct {
	fragments []string
	delay     time.Duration
	err       error
	pos       int

	closeOnce sync.Once
	closed    chan struct{}
}

func (s *stream) Next(ctx context.Context) (string, error) {
	for {
		select {
		case <-s.closed:
			return "", io.ErrClosedPipe
		default:
		}

		if s.pos >= len(s.fragments) {
			if s.err != nil {
				return "", s.err
			}
			return "", io.EOF
		}

		if s.delay > 0 {
			timer := time.NewTimer(s.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-s.closed:
				timer.Stop()
				return "", io.ErrClosedPipe
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return "", err
		}

		fragment := s.fragments[s.pos]
		s.pos++
		if fragment != "" {
			return fragment, nil
		}
	}
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}
