package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/ideas/pkg/config"
	"github.com/papercomputeco/ideas/pkg/llm"
)

var _ = Describe("Store", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	writeConfig := func(data string) {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
	}

	newStore := func() *config.Store {
		c, err := config.Open(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			cfg, err := newStore().Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads a valid config file and fills the rest with defaults", func() {
			writeConfig(`version = 0

[upstream]
provider = "anthropic"
url = "https://api.anthropic.com"

[server]
workers = 8
`)
			cfg, err := newStore().Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Upstream.Provider).To(Equal("anthropic"))
			Expect(cfg.Upstream.URL).To(Equal("https://api.anthropic.com"))
			Expect(cfg.Server.Workers).To(Equal(uint(8)))

			defaults := config.NewDefaultConfig()
			Expect(cfg.Server.Listen).To(Equal(defaults.Server.Listen))
			Expect(cfg.Server.QueueSize).To(Equal(defaults.Server.QueueSize))
			Expect(cfg.Agent.Model).To(Equal(llm.DefaultAgent().Model))
			Expect(cfg.Agent.Prompt).To(Equal(llm.DefaultPrompt))
			Expect(cfg.Storage.Driver).To(Equal("memory"))
			Expect(cfg.Events.Publisher).To(Equal("nop"))
		})

		It("returns error for malformed TOML", func() {
			writeConfig("[server\nlisten=")
			_, err := newStore().Load()
			Expect(err).To(MatchError(ContainSubstring("parsing config TOML")))
		})

		It("rejects unknown keys", func() {
			writeConfig("[server]\nport = 8080\n")
			_, err := newStore().Load()
			Expect(err).To(MatchError(`unknown config key: "server.port"`))
		})

		It("rejects secrets and names where they belong", func() {
			writeConfig("[upstream]\nprovider = \"openai\"\napi_key = \"sk-live\"\n")
			_, err := newStore().Load()
			Expect(err).To(MatchError(ContainSubstring("upstream.api_key must not be stored in config.toml")))
			Expect(err).To(MatchError(ContainSubstring("IDEAS_UPSTREAM_API_KEY")))
		})

		It("returns error for unsupported config version", func() {
			writeConfig("version = 99\n")
			_, err := newStore().Load()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version 99")))
		})
	})

	Describe("SaveConfig", func() {
		It("persists config to disk with 0600 permissions", func() {
			c := newStore()
			cfg := config.NewDefaultConfig()
			cfg.Storage.Driver = "sqlite"
			cfg.Storage.SQLitePath = "/tmp/ideas.db"
			Expect(c.Save(cfg)).To(Succeed())

			info, err := os.Stat(c.Path())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

			loaded, err := c.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("returns error for nil config", func() {
			Expect(newStore().Save(nil)).To(MatchError("cannot save nil config"))
		})
	})

	Describe("SetConfigValue", func() {
		It("sets a string config key", func() {
			c := newStore()
			Expect(c.Set("server.listen", ":9090")).To(Succeed())

			v, err := c.Get("server.listen")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(":9090"))
		})

		It("sets a uint config key", func() {
			c := newStore()
			Expect(c.Set("client.max_retries", "5")).To(Succeed())

			cfg, err := c.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Client.MaxRetries).To(Equal(uint(5)))
		})

		It("returns error for invalid uint value", func() {
			err := newStore().Set("server.workers", "many")
			Expect(err).To(MatchError(ContainSubstring("invalid value for server.workers")))
		})

		It("validates durations", func() {
			c := newStore()
			Expect(c.Set("client.retry_interval", "500ms")).To(Succeed())
			Expect(c.Set("client.retry_interval", "soon")).To(MatchError(ContainSubstring("client.retry_interval")))
		})

		It("validates enumerated values", func() {
			c := newStore()
			Expect(c.Set("storage.driver", "postgres")).To(Succeed())
			Expect(c.Set("storage.driver", "mongo")).To(MatchError(ContainSubstring("storage.driver")))
			Expect(c.Set("upstream.provider", "script")).To(Succeed())
			Expect(c.Set("auth.mode", "basic")).To(HaveOccurred())
			Expect(c.Set("events.publisher", "kafka")).To(Succeed())
		})

		It("returns error for unknown key", func() {
			Expect(newStore().Set("proxy.listen", ":1")).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("refuses secret keys", func() {
			Expect(newStore().Set("auth.secret", "x")).To(MatchError(ContainSubstring("IDEAS_AUTH_SECRET")))
			Expect(config.SecretHint("auth.secret")).To(Equal("IDEAS_AUTH_SECRET"))
			Expect(config.SecretHint("server.listen")).To(BeEmpty())
		})

		It("preserves existing values when setting a new key", func() {
			c := newStore()
			Expect(c.Set("events.topic", "ideas.custom")).To(Succeed())
			Expect(c.Set("events.brokers", "kafka-1:9092,kafka-2:9092")).To(Succeed())

			cfg, err := c.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Events.Topic).To(Equal("ideas.custom"))
			Expect(cfg.Events.Brokers).To(Equal("kafka-1:9092,kafka-2:9092"))
		})
	})

	Describe("GetConfigValue", func() {
		It("returns default value when no config file exists", func() {
			v, err := newStore().Get("client.target")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("http://localhost:8080"))
		})

		It("returns empty string for key with no default", func() {
			v, err := newStore().Get("storage.postgres_dsn")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(BeEmpty())
		})

		It("returns error for unknown key", func() {
			_, err := newStore().Get("nope")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("ValidConfigKeys", func() {
	It("returns every key in section order", func() {
		keys := config.ValidConfigKeys()
		Expect(keys).To(HaveLen(23))
		Expect(keys[0]).To(Equal("server.listen"))
		Expect(keys[len(keys)-1]).To(Equal("client.max_retries"))
		for _, k := range keys {
			Expect(config.IsValidConfigKey(k)).To(BeTrue(), k)
		}
	})

	It("does not expose secrets", func() {
		Expect(config.IsValidConfigKey("upstream.api_key")).To(BeFalse())
		Expect(config.IsValidConfigKey("auth.secret")).To(BeFalse())
	})
})

var _ = Describe("PresetConfig", func() {
	DescribeTable("returns upstream presets",
		func(name, provider, url string) {
			cfg, err := config.PresetConfig(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Upstream.Provider).To(Equal(provider))
			Expect(cfg.Upstream.URL).To(Equal(url))
			Expect(cfg.Server.Listen).To(Equal(":8080"))
		},
		Entry("openai", "openai", "openai", "https://api.openai.com"),
		Entry("anthropic", "anthropic", "anthropic", "https://api.anthropic.com"),
		Entry("ollama", "ollama", "ollama", "http://localhost:11434"),
		Entry("script", "script", "script", ""),
		Entry("case-insensitive", "OpenAI", "openai", "https://api.openai.com"),
	)

	It("returns error for unknown preset", func() {
		_, err := config.PresetConfig("bedrock")
		Expect(err).To(MatchError(ContainSubstring("unknown preset")))
	})

	It("lists preset names", func() {
		Expect(config.ValidPresetNames()).To(ConsistOf("openai", "anthropic", "ollama", "script"))
	})
})

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		defaults := config.NewDefaultConfig()
		Expect(v.GetString("server.listen")).To(Equal(defaults.Server.Listen))
		Expect(v.GetString("upstream.provider")).To(Equal(defaults.Upstream.Provider))
		Expect(v.GetUint("server.workers")).To(Equal(defaults.Server.Workers))
		Expect(v.GetString("client.target")).To(Equal(defaults.Client.Target))
	})

	It("reads config file values over defaults", func() {
		data := `[upstream]
provider = "ollama"
url = "http://localhost:11434"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("upstream.provider")).To(Equal("ollama"))
		Expect(v.GetString("server.listen")).To(Equal(":8080"))
	})

	It("env vars take precedence over config file values", func() {
		data := `[storage]
driver = "sqlite"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
		GinkgoT().Setenv("IDEAS_STORAGE_DRIVER", "postgres")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("storage.driver")).To(Equal("postgres"))
	})

	It("rejects a config file holding a secret", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[auth]\nsecret = \"s3cr3t\"\n"), 0o600)).To(Succeed())

		_, err := config.InitViper(tmpDir)
		Expect(err).To(MatchError(ContainSubstring("IDEAS_AUTH_SECRET")))
	})

	It("rejects values that would fail validation", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[storage]\ndriver = \"mongo\"\n"), 0o600)).To(Succeed())

		_, err := config.InitViper(tmpDir)
		Expect(err).To(MatchError(ContainSubstring("invalid value for storage.driver")))
	})
})

var _ = Describe("BindFlags", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("binds cobra flags to viper keys via registry", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.Flags, config.FlagListen, &listen)

		Expect(cmd.Flags().Set("listen", ":7777")).To(Succeed())
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagListen})

		Expect(v.GetString("server.listen")).To(Equal(":7777"))
	})

	It("falls through to config when flag not set", func() {
		data := `[client]
target = "http://ideas.internal:9000"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var target string
		config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &target)
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagTarget})

		Expect(v.GetString("client.target")).To(Equal("http://ideas.internal:9000"))
	})

	It("skips bindings for nonexistent registry keys", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{"nonexistent"})

		Expect(v.GetString("server.listen")).To(Equal(":8080"))
	})

	It("AddStringFlag pulls name, shorthand, default and description from the registry", func() {
		cmd := &cobra.Command{Use: "test"}
		var target string
		config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &target)

		f := cmd.Flags().Lookup("target")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("t"))
		Expect(f.Usage).To(Equal("Ideas server URL"))
		Expect(f.DefValue).To(Equal("http://localhost:8080"))
	})

	It("AddUintFlag works for workers", func() {
		cmd := &cobra.Command{Use: "test"}
		var workers uint
		config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &workers)

		f := cmd.Flags().Lookup("workers")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal("3"))
	})

	It("maps every registry flag onto a known config key", func() {
		for name, f := range config.Flags {
			Expect(config.IsValidConfigKey(f.ViperKey)).To(BeTrue(), name)
		}
	})
})
