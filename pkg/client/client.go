// Package client consumes the idea event stream. A Client mounts sessions;
// each session authenticates, connects, reassembles the streamed text and
// publishes every change of its State until it completes, fails or is
// unmounted.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/papercomputeco/ideas/pkg/logger"
)

// DefaultRetryInterval is waited between connection attempts unless the
// server sent a retry field.
const DefaultRetryInterval = 3 * time.Second

// Config configures a Client.
type Config struct {
	// URL of the idea stream, e.g. http://localhost:8080/api/idea.
	URL string

	// Tokens supplies the bearer token. Nil means no token is available.
	Tokens TokenSource

	// HTTPClient sends the requests. It must not set a Timeout, which would
	// cut long streams. Defaults to a new http.Client.
	HTTPClient *http.Client

	// RetryInterval is waited before reconnecting after a transient failure.
	RetryInterval time.Duration

	// MaxRetries bounds reconnections. Zero retries forever.
	MaxRetries int

	// MaxMalformed ends the session after that many undecodable message
	// events. Zero tolerates any number.
	MaxMalformed int

	Logger *slog.Logger
}

// Client mounts stream sessions against one server.
type Client struct {
	url           string
	tokens        TokenSource
	httpClient    *http.Client
	retryInterval time.Duration
	maxRetries    int
	maxMalformed  int
	logger        *slog.Logger
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing stream url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("stream url must be http or https: %q", cfg.URL)
	}
	if cfg.RetryInterval < 0 || cfg.MaxRetries < 0 || cfg.MaxMalformed < 0 {
		return nil, errors.New("retry and malformed limits must not be negative")
	}

	c := &Client{
		url:           u.String(),
		tokens:        cfg.Tokens,
		httpClient:    cfg.HTTPClient,
		retryInterval: cfg.RetryInterval,
		maxRetries:    cfg.MaxRetries,
		maxMalformed:  cfg.MaxMalformed,
		logger:        cfg.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.retryInterval == 0 {
		c.retryInterval = DefaultRetryInterval
	}
	if c.logger == nil {
		c.logger = logger.Nop()
	}
	return c, nil
}

// Mount starts one session. onUpdate, which may be nil, receives every
// state change in order from the session goroutine, ending with the Aborted
// state when the session is aborted; it must not block for long. The session ends on its own after the end event or a fatal error,
// and is aborted by Unmount or by cancelling ctx.
func (c *Client) Mount(ctx context.Context, onUpdate func(State)) *Session {
	s := &Session{
		client:   c,
		onUpdate: onUpdate,
		state:    State{Phase: Idle, Text: LoadingText},
		retry:    c.retryInterval,
		done:     make(chan struct{}),
		logger:   c.logger.With("url", c.url),
	}
	s.handle = newAbortHandle(ctx, s.markAborted)

	go s.run()
	return s
}
