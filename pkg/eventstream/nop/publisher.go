package nop

import (
	"context"

	"github.com/papercomputeco/ideas/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishIdea validates input and otherwise does nothing.
func (p *Publisher) PublishIdea(_ context.Context, event *eventstream.IdeaGeneratedEvent) error {
	if event == nil {
		return eventstream.ErrNilIdeaEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
