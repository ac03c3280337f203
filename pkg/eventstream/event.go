package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/ideas/pkg/storage"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeIdeaGenerated is emitted after a completed idea is persisted.
	EventTypeIdeaGenerated = "ideas.idea.generated"
)

// IdeaGeneratedEvent is a transport-neutral event payload for a persisted idea.
type IdeaGeneratedEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Source        EventSource  `json:"source"`
	RequestMeta   RequestMeta  `json:"request_meta"`
	Idea          storage.Idea `json:"idea"`
}

// EventSource identifies where the idea originated.
type EventSource struct {
	Provider string `json:"provider"`
	Agent    string `json:"agent,omitempty"`
	Model    string `json:"model,omitempty"`
}

// RequestMeta captures stream lifecycle metadata for the event.
type RequestMeta struct {
	Path        string    `json:"path,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Fragments   int       `json:"fragments"`
}

// NewIdeaGeneratedEvent builds the event announcing idea.
func NewIdeaGeneratedEvent(idea *storage.Idea, provider, path string) *IdeaGeneratedEvent {
	return &IdeaGeneratedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeIdeaGenerated,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source: EventSource{
			Provider: provider,
			Agent:    idea.Agent,
			Model:    idea.Model,
		},
		RequestMeta: RequestMeta{
			Path:        path,
			StartedAt:   idea.StartedAt,
			CompletedAt: idea.CompletedAt,
			DurationMs:  idea.CompletedAt.Sub(idea.StartedAt).Milliseconds(),
			Fragments:   idea.Fragments,
		},
		Idea: *idea,
	}
}
