// Package server serves generated ideas to authenticated clients as
// Server-Sent Events and exposes the persisted idea history.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/papercomputeco/ideas/pkg/auth"
	"github.com/papercomputeco/ideas/pkg/metrics"
	"github.com/papercomputeco/ideas/pkg/stream"
	"github.com/papercomputeco/ideas/server/worker"
)

const (
	apiPrefix   = "/api"
	ideaPath    = apiPrefix + "/idea"
	healthPath  = "/health"
	metricsPath = "/metrics"
)

// Server streams ideas over SSE. Every completed stream is handed to the
// worker pool for persistence and publishing; failed or aborted streams are
// discarded.
type Server struct {
	config     Config
	logger     *slog.Logger
	app        *fiber.App
	encoder    *stream.Encoder
	metrics    *metrics.Metrics
	workerPool *worker.Pool

	// baseCtx parents every session so that Close can abort them all.
	baseCtx  context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// New creates a new Server.
func New(config Config, logger *slog.Logger) (*Server, error) {
	if config.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if config.Authenticator == nil {
		return nil, errors.New("authenticator is required")
	}
	if config.Driver == nil {
		return nil, errors.New("storage driver is required")
	}

	m := config.Metrics
	if m == nil {
		m = metrics.New()
	}

	wp, err := worker.NewPool(&worker.Config{
		Driver:     config.Driver,
		Publisher:  config.Publisher,
		Recorder:   m,
		NumWorkers: config.NumWorkers,
		QueueSize:  config.QueueSize,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		// Routes match exactly so that the paths the compress filter and the
		// auth group see are the paths that reach handlers.
		CaseSensitive: true,
		StrictRouting: true,
	})

	app.Use(recover.New())

	// Compressing an event stream would buffer it until the compressor
	// flushes, so the idea route is excluded.
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == ideaPath
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config:     config,
		logger:     logger,
		app:        app,
		metrics:    m,
		workerPool: wp,
		baseCtx:    ctx,
		cancel:     cancel,
		encoder: stream.NewEncoder(stream.Config{
			Agent:  config.Agent,
			Prompt: config.Prompt,
		}, config.Generator, logger).WithObserver(m),
	}

	app.Get(healthPath, s.handleHealth)
	app.Get(metricsPath, adaptor.HTTPHandler(m.Handler()))

	api := app.Group(apiPrefix, auth.Middleware(config.Authenticator, logger))
	api.Get("/idea", s.handleIdea)
	api.Get("/ideas", s.handleListIdeas)
	api.Get("/ideas/:id", s.handleGetIdea)

	return s, nil
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting ideas server",
		"listen", s.config.ListenAddr,
		"provider", s.config.Generator.Name(),
	)

	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting ideas server",
		"listen", listener.Addr().String(),
		"provider", s.config.Generator.Name(),
	)

	return s.app.Listener(listener)
}

// Close aborts in-flight sessions, shuts the HTTP server down and waits for
// the worker pool to drain. The storage driver and publisher are owned by
// the caller and stay open.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.closeErr = s.app.Shutdown()
		s.sessions.Wait()
		s.workerPool.Close()
	})
	return s.closeErr
}
