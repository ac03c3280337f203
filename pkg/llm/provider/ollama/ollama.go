package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/papercomputeco/ideas/pkg/llm"
)

// DefaultBaseURL is the local Ollama daemon.
const DefaultBaseURL = "http://localhost:11434"

const maxLineSize = 1024 * 1024

// Config configures the Ollama generator.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

// provider implements llm.Generator for Ollama's /api/chat endpoint.
type provider struct {
	baseURL string
	client  *http.Client
}

func New(cfg Config) *provider {
	p := &provider{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
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

func (o *provider) Name() string {
	return "ollama"
}

func (o *provider) Generate(ctx context.Context, req *llm.GenerateRequest) (llm.TextStream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := ollamaRequest{
		Model:  req.Agent.Model,
		Stream: req.Stream,
	}
	for _, m := range req.Messages() {
		body.Messages = append(body.Messages, ollamaMessage{Role: m.Role, Content: m.Content})
	}
	if req.MaxTokens > 0 {
		body.Options = &ollamaOptions{NumPredict: &req.MaxTokens}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	if err := llm.CheckResponse(o.Name(), resp); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	d := &decoder{scanner: scanner}
	return llm.NewBodyStream(resp.Body, d.next), nil
}

// decoder turns NDJSON chat chunks into text fragments.
type decoder struct {
	scanner *bufio.Scanner
	done    bool
}

func (d *decoder) next() (string, error) {
	if d.done {
		return "", io.EOF
	}

	for d.scanner.Scan() {
		line := bytes.TrimSpace(d.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk ollamaResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", fmt.Errorf("parsing ollama chunk: %w", err)
		}
		if chunk.Error != "" {
			return "", &llm.StreamError{Provider: "ollama", Message: chunk.Error}
		}

		// The final chunk may still carry trailing content; it is returned
		// now and io.EOF on the following call.
		d.done = chunk.Done
		if chunk.Message.Content == "" && d.done {
			return "", io.EOF
		}
		return chunk.Message.Content, nil
	}

	if err := d.scanner.Err(); err != nil {
		return "", fmt.Errorf("reading ollama stream: %w", err)
	}
	return "", fmt.Errorf("ollama stream ended before done: %w", io.ErrUnexpectedEOF)
}
