package provider_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ideas/pkg/llm/provider"
)

var _ = Describe("New", func() {
	DescribeTable("builds every supported provider",
		func(name string) {
			gen, err := provider.New(provider.Config{Type: name})
			Expect(err).NotTo(HaveOccurred())
			Expect(gen.Name()).To(Equal(name))
		},
		Entry("anthropic", provider.Anthropic),
		Entry("openai", provider.OpenAI),
		Entry("ollama", provider.Ollama),
		Entry("script", provider.Script),
	)

	It("rejects unknown providers", func() {
		_, err := provider.New(provider.Config{Type: "bedrock"})
		Expect(err).To(MatchError(ContainSubstring(`unknown provider type: "bedrock"`)))
	})
})
