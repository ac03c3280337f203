// Package openai streams completions from OpenAI's Chat Completions API and
// compatible servers.
package openai

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

// DefaultBaseURL is used when Config.BaseURL is empty.
const DefaultBaseURL = "https://api.openai.com"

const doneSentinel = "[DONE]"

// Config configures the OpenAI generator.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// provider implements llm.Generator for OpenAI's Chat Completions API.
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
	return "openai"
}

func (p *provider) Generate(ctx context.Context, req *llm.GenerateRequest) (llm.TextStream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := openaiRequest{
		Model:  req.Agent.Model,
		Stream: req.Stream,
	}
	for _, m := range req.Messages() {
		body.Messages = append(body.Messages, openaiMessage{Role: m.Role, Content: m.Content})
	}
	if req.MaxTokens > 0 {
		body.MaxCompletionTokens = &req.MaxTokens
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating openai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", sse.ContentType)
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if err := llm.CheckResponse(p.Name(), resp); err != nil {
		return nil, err
	}

	d := &decoder{reader: sse.NewReader(resp.Body)}
	return llm.NewBodyStream(resp.Body, d.next), nil
}

// decoder turns chat.completion.chunk events into text fragments.
type decoder struct {
	reader   *sse.Reader
	finished bool
}

func (d *decoder) next() (string, error) {
	ev, err := d.reader.Next()
	if errors.Is(err, io.EOF) {
		// Some compatible servers omit the [DONE] sentinel after the final
		// chunk carrying a finish_reason.
		if d.finished {
			return "", io.EOF
		}
		return "", fmt.Errorf("openai stream ended early: %w", io.ErrUnexpectedEOF)
	}
	if err != nil {
		return "", fmt.Errorf("reading openai stream: %w", err)
	}

	if ev.Data == doneSentinel {
		return "", io.EOF
	}

	var chunk openaiStreamChunk
	if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
		return "", fmt.Errorf("parsing openai chunk: %w", err)
	}
	if chunk.Error != nil {
		return "", &llm.StreamError{Provider: "openai", Type: chunk.Error.Type, Message: chunk.Error.Message}
	}

	var text strings.Builder
	for _, choice := range chunk.Choices {
		if choice.Index != 0 {
			continue
		}
		text.WriteString(choice.Delta.Content)
		if choice.FinishReason != nil {
			d.finished = true
		}
	}
	return text.String(), nil
}
