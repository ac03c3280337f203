// Package anthropic streams completions from Anthropic's Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/papercomputeco/ideas/pkg/llm"
	"github.com/papercomputeco/ideas/pkg/sse"
)

const (
	// DefaultBaseURL is used when Config.BaseURL is empty.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultMaxTokens is sent when the request does not set a limit; the
	// Messages API requires one.
	DefaultMaxTokens = 1024

	apiVersion = "2023-06-01"
)

// Config configures the Anthropic generator.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// provider implements llm.Generator for Anthropic's Messages API.
type provider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func New(cfg Config) *provider {
	p := &provider{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  cfg.HTTPClient,
	}
	if p.baseURL == "" {
		p.baseURL = DefaultBaseURL
	}
	if p.client == nil {
		p.client = http.DefaultClient
	}
	return p
}

func (p *provider) Name() string {
	return "anthropic"
}

func (p *provider) Generate(ctx context.Context, req *llm.GenerateRequest) (llm.TextStream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := anthropicRequest{
		Model:     req.Agent.Model,
		System:    req.Agent.Instructions,
		MaxTokens: DefaultMaxTokens,
		Stream:    req.Stream,
		Messages:  []anthropicMessage{{Role: llm.RoleUser, Content: req.Prompt}},
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", sse.ContentType)
	httpReq.Header.Set("Anthropic-Version", apiVersion)
	if p.apiKey != "" {
		httpReq.Header.Set("X-Api-Key", p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}
	if err := llm.CheckResponse(p.Name(), resp); err != nil {
		return nil, err
	}

	d := &decoder{reader: sse.NewReader(resp.Body)}
	return llm.NewBodyStream(resp.Body, d.next), nil
}

// decoder turns Messages API stream events into text fragments.
type decoder struct {
	reader *sse.Reader
}

func (d *decoder) next() (string, error) {
	ev, err := d.reader.Next()
	if errors.Is(err, io.EOF) {
		return "", fmt.Errorf("anthropic stream ended before message_stop: %w", io.ErrUnexpectedEOF)
	}
	if err != nil {
		return "", fmt.Errorf("reading anthropic stream: %w", err)
	}

	var payload anthropicStreamEvent
	if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
		return "", fmt.Errorf("parsing anthropic event %q: %w", ev.Type, err)
	}

	switch payload.Type {
	case "content_block_delta":
		if payload.Delta != nil && payload.Delta.Type == "text_delta" {
			return payload.Delta.Text, nil
		}
	case "message_stop":
		return "", io.EOF
	case "error":
		streamErr := &llm.StreamError{Provider: "anthropic"}
		if payload.Error != nil {
			streamErr.Type = payload.Error.Type
			streamErr.Message = payload.Error.Message
		}
		return "", streamErr
	}

	// message_start, content_block_start, ping and friends carry no text.
	return "", nil
}
