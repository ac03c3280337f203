package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/ideas/cmd/ideas/config"
	"github.com/papercomputeco/ideas/pkg/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has init, set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("init", "set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		dir string
		out *bytes.Buffer
	)

	BeforeEach(func() {
		dir = filepath.Join(GinkgoT().TempDir(), ".ideas")
		out = &bytes.Buffer{}
	})

	run := func(args ...string) error {
		cmd := configcmder.NewConfigCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override path to .ideas/ config directory")
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(append(args, "--config-dir", dir))
		return cmd.Execute()
	}

	load := func() *config.Config {
		store, err := config.Open(dir)
		Expect(err).NotTo(HaveOccurred())
		cfg, err := store.Load()
		Expect(err).NotTo(HaveOccurred())
		return cfg
	}

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			Expect(run("set", "upstream.provider", "anthropic")).To(Succeed())

			_, err := os.Stat(filepath.Join(dir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(load().Upstream.Provider).To(Equal("anthropic"))
		})

		It("rejects unknown keys", func() {
			Expect(run("set", "invalid_key", "value")).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("points secrets at the environment", func() {
			err := run("set", "auth.secret", "hunter2")
			Expect(err).To(MatchError(ContainSubstring("IDEAS_AUTH_SECRET")))
			_, statErr := os.Stat(filepath.Join(dir, "config.toml"))
			Expect(os.IsNotExist(statErr)).To(BeTrue())
		})

		It("requires exactly two arguments", func() {
			Expect(run("set", "upstream.provider")).To(HaveOccurred())
		})

		It("rejects invalid uint values", func() {
			Expect(run("set", "server.workers", "not-a-number")).To(HaveOccurred())
		})

		It("rejects invalid durations", func() {
			Expect(run("set", "client.retry_interval", "soon")).To(HaveOccurred())
		})

		It("rejects unknown storage drivers", func() {
			Expect(run("set", "storage.driver", "mongo")).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			Expect(run("set", "client.target", "http://ideas.local:9000")).To(Succeed())
			out.Reset()

			Expect(run("get", "client.target")).To(Succeed())
			Expect(ansi.Strip(out.String())).To(ContainSubstring("http://ideas.local:9000"))
		})

		It("falls back to the default for unset keys", func() {
			Expect(run("get", "server.listen")).To(Succeed())
			Expect(ansi.Strip(out.String())).To(ContainSubstring(":8080"))
		})

		It("rejects unknown keys", func() {
			Expect(run("get", "invalid_key")).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			Expect(run("list")).To(Succeed())
			for _, key := range config.ValidConfigKeys() {
				Expect(ansi.Strip(out.String())).To(ContainSubstring(key))
			}
			Expect(ansi.Strip(out.String())).To(ContainSubstring("[storage]"))
		})

		It("rejects any arguments", func() {
			Expect(run("list", "extra")).To(HaveOccurred())
		})
	})

	Describe("init subcommand", func() {
		It("writes the preset", func() {
			Expect(run("init", "--preset", "script")).To(Succeed())

			cfg := load()
			Expect(cfg.Upstream.Provider).To(Equal("script"))
			Expect(cfg.Upstream.Delay).To(Equal("50ms"))
		})

		It("refuses to overwrite without --force", func() {
			Expect(run("init", "--preset", "script")).To(Succeed())
			Expect(run("init", "--preset", "ollama")).To(MatchError(ContainSubstring("--force")))

			Expect(run("init", "--preset", "ollama", "--force")).To(Succeed())
			Expect(load().Upstream.Provider).To(Equal("ollama"))
		})

		It("rejects unknown presets", func() {
			Expect(run("init", "--preset", "bard")).To(MatchError(ContainSubstring("unknown preset")))
		})
	})
})
