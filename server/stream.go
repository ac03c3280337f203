package server

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/ideas/pkg/auth"
	"github.com/papercomputeco/ideas/pkg/metrics"
	"github.com/papercomputeco/ideas/pkg/sse"
	"github.com/papercomputeco/ideas/pkg/storage"
	"github.com/papercomputeco/ideas/pkg/stream"
	"github.com/papercomputeco/ideas/server/worker"
)

// handleIdea opens one connection session: a fresh generation streamed to
// this client only.
func (s *Server) handleIdea(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// Values backed by the fasthttp request are recycled once the handler
	// returns, so copy what the session needs.
	path := strings.Clone(c.Path())
	var subject string
	if id, ok := auth.IdentityFrom(c); ok {
		subject = id.Subject
	}

	// io.Pipe makes every pw.Write block until fasthttp has written the
	// chunk to the socket, so each fragment is flushed on its own. When the
	// client goes away fasthttp closes pr and the next write fails.
	pr, pw := io.Pipe()

	s.sessions.Add(1)
	go s.serveSession(pw, path, subject)

	// Unknown size (-1) selects chunked transfer encoding.
	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// serveSession drives the encoder for one client. It runs on the server's
// base context rather than the request context because fasthttp recycles
// the RequestCtx after the handler returns.
func (s *Server) serveSession(pw *io.PipeWriter, path, subject string) {
	defer s.sessions.Done()
	defer pw.Close()

	ctx, cancel := context.WithCancel(s.baseCtx)
	defer cancel()

	end := s.metrics.StartSession()
	w := sse.NewWriter(pw)
	defer w.Close()

	result, err := s.encoder.Encode(ctx, w)
	switch {
	case errors.Is(err, stream.ErrClientGone):
		end(metrics.OutcomeClientGone)
		return
	case err != nil:
		end(metrics.OutcomeUpstreamError)
		if s.baseCtx.Err() != nil {
			s.logger.Debug("stream aborted by shutdown", "path", path)
		}
		return
	}
	end(metrics.OutcomeCompleted)

	s.workerPool.Enqueue(worker.Job{
		Provider: s.config.Generator.Name(),
		Path:     path,
		Idea: &storage.Idea{
			ID:          result.ID,
			Agent:       result.Agent,
			Model:       result.Model,
			Prompt:      result.Prompt,
			Text:        result.Text,
			Fragments:   result.Fragments,
			Subject:     subject,
			StartedAt:   result.StartedAt,
			CompletedAt: result.CompletedAt,
		},
	})
}
