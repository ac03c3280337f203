package server

import (
	"github.com/papercomputeco/ideas/pkg/auth"
	"github.com/papercomputeco/ideas/pkg/eventstream"
	"github.com/papercomputeco/ideas/pkg/llm"
	"github.com/papercomputeco/ideas/pkg/metrics"
	"github.com/papercomputeco/ideas/pkg/storage"
)

// Config is the ideas server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Agent and Prompt drive every generation. Zero values select
	// llm.DefaultAgent and llm.DefaultPrompt.
	Agent  llm.Agent
	Prompt string

	// Generator produces the upstream fragments.
	Generator llm.Generator

	// Authenticator validates bearer tokens on the protected /api routes.
	Authenticator auth.Authenticator

	// Driver persists completed ideas.
	Driver storage.Driver

	// Publisher announces persisted ideas. If nil, events are disabled.
	Publisher eventstream.Publisher

	// Metrics is optional; a fresh instance is created when nil.
	Metrics *metrics.Metrics

	// NumWorkers and QueueSize size the persistence worker pool.
	NumWorkers uint
	QueueSize  uint
}
