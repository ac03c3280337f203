package provider

import (
	"fmt"

	"github.com/papercomputeco/ideas/pkg/llm"
	"github.com/papercomputeco/ideas/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/ideas/pkg/llm/provider/ollama"
	"github.com/papercomputeco/ideas/pkg/llm/provider/openai"
	"github.com/papercomputeco/ideas/pkg/llm/provider/script"
)

// Supported provider type constants
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
	Ollama    = "ollama"
	Script    = "script"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, OpenAI, Ollama, Script}
}

// New creates the generator for cfg.Type.
// Returns an error if the provider type is not recognized.
func New(cfg Config) (llm.Generator, error) {
	switch cfg.Type {
	case Anthropic:
		return anthropic.New(anthropic.Config{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, HTTPClient: cfg.HTTPClient}), nil
	case OpenAI:
		return openai.New(openai.Config{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, HTTPClient: cfg.HTTPClient}), nil
	case Ollama:
		return ollama.New(ollama.Config{BaseURL: cfg.BaseURL, HTTPClient: cfg.HTTPClient}), nil
	case Script:
		return script.New(script.Config{Fragments: cfg.Script, Delay: cfg.Delay}), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", cfg.Type, SupportedProviders())
	}
}
