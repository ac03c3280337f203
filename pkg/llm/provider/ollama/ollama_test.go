package ollama_test

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
	"github.com/papercomputeco/ideas/pkg/llm/provider/ollama"
)

func line(content string, done bool) string {
	payload, _ := json.Marshal(map[string]any{
		"model":   "llama3.2",
		"message": map[string]string{"role": "assistant", "content": content},
		"done":    done,
	})
	return string(payload) + "\n"
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

var _ = Describe("Ollama Provider", func() {
	var (
		upstream *httptest.Server
		handler  http.HandlerFunc
		request  *llm.GenerateRequest
	)

	BeforeEach(func() {
		request = &llm.GenerateRequest{
			Agent:     llm.Agent{Name: "Assistant", Model: "llama3.2"},
			Prompt:    "Give me an idea",
			MaxTokens: 256,
			Stream:    true,
		}
		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		DeferCleanup(upstream.Close)
	})

	generator := func() llm.Generator {
		return ollama.New(ollama.Config{BaseURL: upstream.URL})
	}

	It("returns 'ollama'", func() {
		Expect(generator().Name()).To(Equal("ollama"))
	})

	It("posts a streaming chat request with num_predict", func() {
		var (
			path string
			body map[string]any
		)
		handler = func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&body)
			fmt.Fprint(w, line("", true))
		}

		stream, err := generator().Generate(GinkgoT().Context(), request)
		Expect(err).NotTo(HaveOccurred())
		defer stream.Close()
		_, err = drain(stream)
		Expect(err).To(MatchError(io.EOF))

		Expect(path).To(Equal("/api/chat"))
		Expect(body["stream"]).To(BeTrue())
		Expect(body["options"]).To(HaveKeyWithValue("num_predict", BeNumerically("==", 256)))
		// No instructions, so only the user message is sent.
		Expect(body["messages"]).To(HaveLen(1))
	})

	It("yields NDJSON content in order", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, line("Hel", false))
			fmt.Fprint(w, line("lo", false))
			fmt.Fprint(w, "\n")
			fmt.Fprint(w, line("!", true))
		}

		stream, err := generator().Generate(GinkgoT().Context(), request)
		Expect(err).NotTo(HaveOccurred())
		defer stream.Close()

		fragments, err := drain(stream)
		Expect(err).To(MatchError(io.EOF))
		Expect(fragments).To(Equal([]string{"Hel", "lo", "!"}))
	})

	It("surfaces error lines", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"error":"model not loaded"}`+"\n")
		}

		stream, err := generator().Generate(GinkgoT().Context(), request)
		Expect(err).NotTo(HaveOccurred())
		defer stream.Close()

		_, err = drain(stream)
		var streamErr *llm.StreamError
		Expect(errors.As(err, &streamErr)).To(BeTrue())
		Expect(streamErr.Message).To(Equal("model not loaded"))
	})

	It("fails a stream that closes before done", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, line("Hel", false))
		}

		stream, err := generator().Generate(GinkgoT().Context(), request)
		Expect(err).NotTo(HaveOccurred())
		defer stream.Close()

		_, err = drain(stream)
		Expect(errors.Is(err, io.ErrUnexpectedEOF)).To(BeTrue())
	})

	It("returns a status error for non-200 responses", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"model 'llama3.2' not found"}`)
		}

		_, err := generator().Generate(GinkgoT().Context(), request)
		var statusErr *llm.StatusError
		Expect(errors.As(err, &statusErr)).To(BeTrue())
		Expect(statusErr.StatusCode).To(Equal(http.StatusNotFound))
	})
})
