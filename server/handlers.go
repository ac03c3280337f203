package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/ideas/pkg/llm"
	"github.com/papercomputeco/ideas/pkg/storage"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// IdeasResponse is the body of GET /api/ideas.
type IdeasResponse struct {
	Ideas []*storage.Idea `json:"ideas"`
	Total int             `json:"total"`
}

// handleHealth reports liveness with a fresh timestamp on every call.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// handleListIdeas returns the most recently completed ideas.
func (s *Server) handleListIdeas(c *fiber.Ctx) error {
	ctx := c.UserContext()
	limit := storage.ClampLimit(c.QueryInt("limit", storage.DefaultListLimit))

	ideas, err := s.config.Driver.List(ctx, limit)
	if err != nil {
		s.logger.Error("failed to list ideas", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list ideas"})
	}

	total, err := s.config.Driver.Count(ctx)
	if err != nil {
		s.logger.Error("failed to count ideas", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to count ideas"})
	}

	if ideas == nil {
		ideas = []*storage.Idea{}
	}
	return c.JSON(IdeasResponse{Ideas: ideas, Total: total})
}

// handleGetIdea returns a single idea by its ID.
func (s *Server) handleGetIdea(c *fiber.Ctx) error {
	id := strings.Clone(c.Params("id"))
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "id parameter required"})
	}

	idea, err := s.config.Driver.Get(c.UserContext(), id)
	if err != nil {
		var notFound storage.NotFoundError
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "idea not found"})
		}
		s.logger.Error("failed to get idea", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get idea"})
	}

	return c.JSON(idea)
}
