package anthropic_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ideas/pkg/llm"
	"github.com/papercomputeco/ideas/pkg/llm/provider/anthropic"
)

func event(name, data string) string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", name, data)
}

func textDelta(text string) string {
	payload, _ := json.Marshal(map[string]any{
		"type":  "content_block_delta",
		"index": 0,
		"delta": map[string]string{"type": "text_delta", "text": text},
	})
	return event("content_block_delta", string(payload))
}

func drain(stream llm.TextStream) ([]string, error) {
	var fragments []string
	for {
		f, err := stream.Next(GinkgoT().Context())
		if err != nil {
			return fragments, err
		}
		fragments = append(fragments, f)
	}
}

var _ = Describe("Anthropic Provider", func() {
	var (
		upstream *httptest.Server
		handler  http.HandlerFunc
		request  *llm.GenerateRequest
	)

	BeforeEach(func() {
		request = &llm.GenerateRequest{
			Agent:  llm.Agent{Name: "Assistant", Model: "claude-sonnet-4-5", Instructions: "Be brief."},
			Prompt: "Give me an idea",
			Stream: true,
		}
		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		DeferCleanup(upstream.Close)
	})

	generator := func() llm.Generator {
		return anthropic.New(anthropic.Config{BaseURL: upstream.URL, APIKey: "sk-ant-test"})
	}

	It("returns 'anthropic'", func() {
		Expect(generator().Name()).To(Equal("anthropic"))
	})

	It("sends system instructions separately with a max_tokens default", func() {
		var (
			path, key, version string
			body               map[string]any
		)
		handler = func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			key = r.Header.Get("X-Api-Key")
			version = r.Header.Get("Anthropic-Version")
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, event("message_stop", `{"type":"message_stop"}`))
		}

		stream, err := generator().Generate(GinkgoT().Context(), request)
		Expect(err).NotTo(HaveOccurred())
		defer stream.Close()
		_, err = drain(stream)
		Expect(err).To(MatchError(io.EOF))

		Expect(path).To(Equal("/v1/messages"))
		Expect(key).To(Equal("sk-ant-test"))
		Expect(version).NotTo(BeEmpty())
		Expect(body["system"]).To(Equal("Be brief."))
		Expect(body["max_tokens"]).To(BeNumerically("==", anthropic.DefaultMaxTokens))
		Expect(body["messages"]).To(HaveLen(1))
	})

	It("yields text deltas and ignores bookkeeping events", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, event("message_start", `{"type":"message_start","message":{"id":"msg_1"}}`))
			fmt.Fprint(w, event("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`))
			fmt.Fprint(w, event("ping", `{"type":"ping"}`))
			fmt.Fprint(w, textDelta("# Idea\n"))
			fmt.Fprint(w, textDelta("Agents that \"audit\" agents"))
			fmt.Fprint(w, event("content_block_stop", `{"type":"content_block_stop","index":0}`))
			fmt.Fprint(w, event("message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn"}}`))
			fmt.Fprint(w, event("message_stop", `{"type":"message_stop"}`))
		}

		stream, err := generator().Generate(GinkgoT().Context(), request)
		Expect(err).NotTo(HaveOccurred())
		defer stream.Close()

		fragments, err := drain(stream)
		Expect(err).To(MatchError(io.EOF))
		Expect(fragments).To(Equal([]string{"# Idea\n", "Agents that \"audit\" agents"}))
	})

	It("surfaces error events", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, textDelta("partial"))
			fmt.Fprint(w, event("error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
		}

		stream, err := generator().Generate(GinkgoT().Context(), request)
		Expect(err).NotTo(HaveOccurred())
		defer stream.Close()

		fragments, err := drain(stream)
		Expect(fragments).To(Equal([]string{"partial"}))
		var streamErr *llm.StreamError
		Expect(errors.As(err, &streamErr)).To(BeTrue())
		Expect(streamErr.Type).To(Equal("overloaded_error"))
	})

	It("fails a stream that closes before message_stop", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, textDelta("partial"))
		}

		stream, err := generator().Generate(GinkgoT().Context(), request)
		Expect(err).NotTo(HaveOccurred())
		defer stream.Close()

		_, err = drain(stream)
		Expect(errors.Is(err, io.ErrUnexpectedEOF)).To(BeTrue())
	})

	It("returns a status error for non-200 responses", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}

		_, err := generator().Generate(GinkgoT().Context(), request)
		var statusErr *llm.StatusError
		Expect(errors.As(err, &statusErr)).To(BeTrue())
		Expect(statusErr.StatusCode).To(Equal(http.StatusTooManyRequests))
	})
})
