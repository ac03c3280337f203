package servecmder

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ideas/pkg/auth"
	"github.com/papercomputeco/ideas/pkg/eventstream/kafka"
	"github.com/papercomputeco/ideas/pkg/eventstream/nop"
	"github.com/papercomputeco/ideas/pkg/llm/provider"
	"github.com/papercomputeco/ideas/pkg/logger"
	"github.com/papercomputeco/ideas/pkg/storage/inmemory"
	"github.com/papercomputeco/ideas/pkg/storage/sqlite"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var _ = Describe("ServeCommander", func() {
	var c *ServeCommander

	BeforeEach(func() {
		c = &ServeCommander{
			configDir: filepath.Join(GinkgoT().TempDir(), ".ideas"),
			logger:    logger.Nop(),
		}
	})

	Describe("NewServeCmd", func() {
		It("registers the server flags", func() {
			cmd := NewServeCmd()
			for _, name := range []string{"listen", "provider", "upstream", "auth-mode", "storage", "publisher", "log-file", "log-format"} {
				Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
			}
		})
	})

	Describe("newStorageDriver", func() {
		It("defaults to in-memory storage", func() {
			d, err := c.newStorageDriver(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(d).To(BeAssignableToTypeOf(&inmemory.Driver{}))
		})

		It("opens a SQLite database", func() {
			c.storageDriver = "sqlite"
			c.sqlitePath = filepath.Join(GinkgoT().TempDir(), "ideas.db")

			d, err := c.newStorageDriver(context.Background())
			Expect(err).NotTo(HaveOccurred())
			defer d.Close()
			Expect(d).To(BeAssignableToTypeOf(&sqlite.Driver{}))
		})

		It("requires a path for SQLite", func() {
			c.storageDriver = "sqlite"
			_, err := c.newStorageDriver(context.Background())
			Expect(err).To(MatchError(ContainSubstring("--sqlite")))
		})

		It("requires a DSN for PostgreSQL", func() {
			c.storageDriver = "postgres"
			_, err := c.newStorageDriver(context.Background())
			Expect(err).To(MatchError(ContainSubstring("--postgres")))
		})

		It("rejects unknown drivers", func() {
			c.storageDriver = "mongo"
			_, err := c.newStorageDriver(context.Background())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("newPublisher", func() {
		It("defaults to the nop publisher", func() {
			p, err := c.newPublisher()
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
		})

		It("builds a Kafka publisher from comma separated brokers", func() {
			c.publisher = "kafka"
			c.brokers = "localhost:9092, localhost:9093"
			c.topic = "ideas.generated"

			p, err := c.newPublisher()
			Expect(err).NotTo(HaveOccurred())
			defer p.Close()
			Expect(p).To(BeAssignableToTypeOf(&kafka.Publisher{}))
		})

		It("requires brokers for Kafka", func() {
			c.publisher = "kafka"
			c.topic = "ideas.generated"
			_, err := c.newPublisher()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("newGenerator", func() {
		It("builds the script provider with its delay", func() {
			c.providerType = provider.Script
			c.delay = "5ms"
			gen, err := c.newGenerator()
			Expect(err).NotTo(HaveOccurred())
			Expect(gen.Name()).To(Equal("script"))
		})

		It("rejects an invalid delay", func() {
			c.providerType = provider.Script
			c.delay = "later"
			_, err := c.newGenerator()
			Expect(err).To(MatchError(ContainSubstring("delay")))
		})

		It("uses the upstream api key from the environment", func() {
			GinkgoT().Setenv("IDEAS_UPSTREAM_API_KEY", "sk-env")
			c.providerType = provider.OpenAI
			c.upstream = "http://127.0.0.1:1"
			gen, err := c.newGenerator()
			Expect(err).NotTo(HaveOccurred())
			Expect(gen.Name()).To(Equal("openai"))
		})

		It("rejects unknown providers", func() {
			c.providerType = "bard"
			_, err := c.newGenerator()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("newAuthenticator", func() {
		It("requires the signing secret in hs256 mode", func() {
			GinkgoT().Setenv("IDEAS_AUTH_SECRET", "")
			c.authMode = auth.ModeHS256
			_, err := c.newAuthenticator(context.Background())
			Expect(err).To(MatchError(ContainSubstring("IDEAS_AUTH_SECRET")))
		})

		It("validates tokens minted with the secret", func() {
			GinkgoT().Setenv("IDEAS_AUTH_SECRET", testSecret)
			c.authMode = auth.ModeHS256
			c.audience = "ideas"

			a, err := c.newAuthenticator(context.Background())
			Expect(err).NotTo(HaveOccurred())

			tok, err := auth.Mint(testSecret, auth.MintOptions{Subject: "alice", Audience: []string{"ideas"}, TTL: time.Minute})
			Expect(err).NotTo(HaveOccurred())
			id, err := a.Authenticate(context.Background(), tok)
			Expect(err).NotTo(HaveOccurred())
			Expect(id.Subject).To(Equal("alice"))
		})
	})

	Describe("newLogger", func() {
		It("also writes JSON records to the log file", func() {
			c.logFile = filepath.Join(GinkgoT().TempDir(), "ideas.log")
			l, closeLog, err := c.newLogger()
			Expect(err).NotTo(HaveOccurred())

			l.Info("session completed", "fragments", 3)
			closeLog()

			data, err := os.ReadFile(c.logFile)
			Expect(err).NotTo(HaveOccurred())

			var record map[string]any
			Expect(json.Unmarshal(data, &record)).To(Succeed())
			Expect(record["msg"]).To(Equal("session completed"))
			Expect(record["fragments"]).To(BeNumerically("==", 3))
			Expect(record["component"]).To(Equal("server"))
		})

		It("rejects an unknown log format", func() {
			c.logFormat = "xml"
			_, _, err := c.newLogger()
			Expect(err).To(MatchError(ContainSubstring("unknown log format")))
		})
	})

	Describe("splitList", func() {
		It("drops blanks and whitespace", func() {
			Expect(splitList(" a, ,b ,")).To(Equal([]string{"a", "b"}))
			Expect(splitList("")).To(BeEmpty())
		})
	})
})
