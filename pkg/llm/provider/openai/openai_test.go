package openai_test

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
	"github.com/papercomputeco/ideas/pkg/llm/provider/openai"
)

func chunk(content string) string {
	return fmt.Sprintf("data: {\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q},\"finish_reason\":null}]}\n\n", content)
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

var _ = Describe("OpenAI Provider", func() {
	var (
		upstream *httptest.Server
		handler  http.HandlerFunc
		request  *llm.GenerateRequest
	)

	BeforeEach(func() {
		request = &llm.GenerateRequest{
			Agent:  llm.DefaultAgent(),
			Prompt: "Give me an idea",
			Stream: true,
		}
		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		DeferCleanup(upstream.Close)
	})

	generator := func() llm.Generator {
		return openai.New(openai.Config{BaseURL: upstream.URL, APIKey: "sk-test"})
	}

	It("returns 'openai'", func() {
		Expect(generator().Name()).To(Equal("openai"))
	})

	It("sends a streaming chat completions request", func() {
		var (
			path, auth string
			body       map[string]any
		)
		handler = func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			auth = r.Header.Get("Authorization")
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: [DONE]\n\n")
		}

		stream, err := generator().Generate(GinkgoT().Context(), request)
		Expect(err).NotTo(HaveOccurred())
		defer stream.Close()
		_, err = drain(stream)
		Expect(err).To(MatchError(io.EOF))

		Expect(path).To(Equal("/v1/chat/completions"))
		Expect(auth).To(Equal("Bearer sk-test"))
		Expect(body["model"]).To(Equal("gpt-5-mini"))
		Expect(body["stream"]).To(BeTrue())
		Expect(body["messages"]).To(HaveLen(2))
	})

	It("yields delta content in order and skips empty deltas", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\"}}]}\n\n")
			fmt.Fprint(w, chunk("Hel"))
			fmt.Fprint(w, chunk("lo, "))
			fmt.Fprint(w, chunk("world!\n"))
			fmt.Fprint(w, "data: [DONE]\n\n")
		}

		stream, err := generator().Generate(GinkgoT().Context(), request)
		Expect(err).NotTo(HaveOccurred())
		defer stream.Close()

		fragments, err := drain(stream)
		Expect(err).To(MatchError(io.EOF))
		Expect(fragments).To(Equal([]string{"Hel", "lo, ", "world!\n"}))
	})

	It("accepts a stream that ends after a finish_reason without [DONE]", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, chunk("Hi"))
			fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		}

		stream, err := generator().Generate(GinkgoT().Context(), request)
		Expect(err).NotTo(HaveOccurred())
		defer stream.Close()

		fragments, err := drain(stream)
		Expect(err).To(MatchError(io.EOF))
		Expect(fragments).To(Equal([]string{"Hi"}))
	})

	It("fails a stream that ends without completing", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, chunk("Hi"))
		}

		stream, err := generator().Generate(GinkgoT().Context(), request)
		Expect(err).NotTo(HaveOccurred())
		defer stream.Close()

		_, err = drain(stream)
		Expect(errors.Is(err, io.ErrUnexpectedEOF)).To(BeTrue())
	})

	It("surfaces in-stream errors", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: {\"error\":{\"message\":\"overloaded\",\"type\":\"server_error\"}}\n\n")
		}

		stream, err := generator().Generate(GinkgoT().Context(), request)
		Expect(err).NotTo(HaveOccurred())
		defer stream.Close()

		_, err = drain(stream)
		var streamErr *llm.StreamError
		Expect(errors.As(err, &streamErr)).To(BeTrue())
		Expect(streamErr.Message).To(Equal("overloaded"))
	})

	It("returns a status error for non-200 responses", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"message":"invalid api key"}}`)
		}

		_, err := generator().Generate(GinkgoT().Context(), request)
		var statusErr *llm.StatusError
		Expect(errors.As(err, &statusErr)).To(BeTrue())
		Expect(statusErr.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(statusErr.Body).To(ContainSubstring("invalid api key"))
	})

	It("rejects requests without a prompt", func() {
		_, err := generator().Generate(GinkgoT().Context(), &llm.GenerateRequest{Agent: llm.DefaultAgent()})
		Expect(err).To(MatchError(llm.ErrEmptyPrompt))
	})
})
