package llm

import (
	"context"
	"errors"
)

var (
	// ErrEmptyPrompt is returned by Validate when the request carries no prompt.
	ErrEmptyPrompt = errors.New("prompt is required")

	// ErrNotStreaming is returned by Validate for requests that do not ask
	// for a streamed completion; generators only produce TextStreams.
	ErrNotStreaming = errors.New("only streamed completions are supported")
)

// GenerateRequest is a provider-agnostic request for one streamed completion.
type GenerateRequest struct {
	Agent  Agent
	Prompt string

	// Stream asks the upstream for incremental fragments. It is forwarded as
	// the provider's own streaming flag and must be set.
	Stream bool

	// MaxTokens caps the completion length when greater than zero. Providers
	// that require a limit fall back to their own default.
	MaxTokens int
}

// Validate reports whether the request can be sent upstream.
func (r *GenerateRequest) Validate() error {
	if r == nil || r.Prompt == "" {
		return ErrEmptyPrompt
	}
	if !r.Stream {
		return ErrNotStreaming
	}
	return nil
}

// Messages returns the conversation sent to chat-style providers: the agent
// instructions as a system message, followed by the prompt.
func (r *GenerateRequest) Messages() []Message {
	msgs := make([]Message, 0, 2)
	if r.Agent.Instructions != "" {
		msgs = append(msgs, NewTextMessage(RoleSystem, r.Agent.Instructions))
	}
	return append(msgs, NewTextMessage(RoleUser, r.Prompt))
}

// Generator starts upstream generations.
type Generator interface {
	// Name returns the canonical provider name (e.g., "openai", "anthropic").
	Name() string

	// Generate starts a streamed completion. The returned TextStream is bound
	// to ctx: cancelling ctx aborts the upstream request.
	Generate(ctx context.Context, req *GenerateRequest) (TextStream, error)
}
