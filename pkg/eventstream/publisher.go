package eventstream

import "context"

// Publisher publishes idea events to an event stream backend.
type Publisher interface {
	PublishIdea(ctx context.Context, event *IdeaGeneratedEvent) error
	Close() error
}
