// Package worker provides an asynchronous worker pool for persisting completed
// ideas using the provided storage.Driver and announcing them on the provided
// eventstream.Publisher.
//
// The pool decouples storage and publishing from the streaming hot path so
// that a slow database or broker never delays the end event of a stream.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/ideas/pkg/eventstream"
	"github.com/papercomputeco/ideas/pkg/storage"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 30 * time.Second
)

// Job statuses reported to the Recorder.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Provider string
	Path     string
	Idea     *storage.Idea
}

// Recorder observes job outcomes. *metrics.Metrics implements it.
type Recorder interface {
	JobDone(status string)
	JobDropped()
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend for persisting ideas.
	Driver storage.Driver

	// Publisher announces newly persisted ideas. Optional.
	Publisher eventstream.Publisher

	// Recorder observes job outcomes. Optional.
	Recorder Recorder

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds the storage and publish calls of one job (defaults to 30s).
	JobTimeout time.Duration

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Pool processes persistence jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, errors.New("worker pool requires a storage driver")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.JobTimeout == 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, pool closed", "idea_id", ideaID(job))
		p.dropped()
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"provider", job.Provider,
			"idea_id", ideaID(job),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"provider", job.Provider,
			"idea_id", ideaID(job),
		)
		p.dropped()
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
// Close is safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("storage worker stopped", "worker_id", id)
}

// processJob stores the idea and, when it was newly inserted, publishes the
// generated event. A publish failure is logged but does not fail the job:
// the idea is already durable.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	if err := job.Idea.Validate(); err != nil {
		p.logger.Error("invalid persistence job", "error", err)
		p.done(StatusError)
		return
	}

	isNew, err := p.config.Driver.Put(ctx, job.Idea)
	if err != nil {
		p.logger.Error("async idea storage failed",
			"provider", job.Provider,
			"idea_id", job.Idea.ID,
			"error", err,
		)
		p.done(StatusError)
		return
	}

	p.logger.Info("idea stored",
		"idea_id", job.Idea.ID,
		"provider", job.Provider,
		"fragments", job.Idea.Fragments,
		"is_new", isNew,
	)

	if isNew && p.config.Publisher != nil {
		event := eventstream.NewIdeaGeneratedEvent(job.Idea, job.Provider, job.Path)
		if err := p.config.Publisher.PublishIdea(ctx, event); err != nil {
			p.logger.Warn("failed to publish idea event",
				"idea_id", job.Idea.ID,
				"event_id", event.EventID,
				"error", err,
			)
		} else {
			p.logger.Debug("published idea event",
				"idea_id", job.Idea.ID,
				"event_id", event.EventID,
			)
		}
	}

	p.done(StatusOK)
}

func (p *Pool) done(status string) {
	if p.config.Recorder != nil {
		p.config.Recorder.JobDone(status)
	}
}

func (p *Pool) dropped() {
	if p.config.Recorder != nil {
		p.config.Recorder.JobDropped()
	}
}

func ideaID(job Job) string {
	if job.Idea == nil {
		return ""
	}
	return job.Idea.ID
}
