// Package servecmder provides the serve command that runs the ideas server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ideas/pkg/auth"
	"github.com/papercomputeco/ideas/pkg/config"
	"github.com/papercomputeco/ideas/pkg/credentials"
	"github.com/papercomputeco/ideas/pkg/eventstream"
	"github.com/papercomputeco/ideas/pkg/eventstream/kafka"
	"github.com/papercomputeco/ideas/pkg/eventstream/nop"
	"github.com/papercomputeco/ideas/pkg/llm"
	"github.com/papercomputeco/ideas/pkg/llm/provider"
	"github.com/papercomputeco/ideas/pkg/logger"
	"github.com/papercomputeco/ideas/pkg/storage"
	"github.com/papercomputeco/ideas/pkg/storage/inmemory"
	"github.com/papercomputeco/ideas/pkg/storage/postgres"
	"github.com/papercomputeco/ideas/pkg/storage/sqlite"
	"github.com/papercomputeco/ideas/server"
)

type ServeCommander struct {
	configDir string
	debug     bool
	logFormat string
	logFile   string

	listen    string
	workers   uint
	queueSize uint

	agent  llm.Agent
	prompt string

	providerType string
	upstream     string
	delay        string

	authMode string
	issuer   string
	audience string
	jwksURL  string

	storageDriver string
	sqlitePath    string
	postgresDSN   string

	publisher string
	brokers   string
	topic     string

	logger *slog.Logger
}

// serveFlags are the registry flags bound to viper by "ideas serve".
var serveFlags = []string{
	config.FlagListen,
	config.FlagWorkers,
	config.FlagProvider,
	config.FlagUpstream,
	config.FlagDelay,
	config.FlagModel,
	config.FlagPrompt,
	config.FlagAuthMode,
	config.FlagIssuer,
	config.FlagAudience,
	config.FlagJWKSURL,
	config.FlagStorage,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagPublisher,
	config.FlagBrokers,
	config.FlagTopic,
}

const serveLongDesc string = `Run the ideas server.

The server streams one freshly generated idea per request to GET /api/idea
as Server-Sent Events, persists every completed idea and serves the history
on GET /api/ideas. All /api routes require a bearer token.

Supported provider types: openai, anthropic, ollama, script

Secrets never live in config.toml:
  IDEAS_AUTH_SECRET        HS256 signing secret (auth mode hs256)
  IDEAS_UPSTREAM_API_KEY   Upstream API key (falls back to OPENAI_API_KEY,
                           ANTHROPIC_API_KEY or "ideas auth <provider>")`

const serveShortDesc string = "Run the ideas server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)

			cmder.listen = v.GetString("server.listen")
			cmder.workers = v.GetUint("server.workers")
			cmder.queueSize = v.GetUint("server.queue_size")
			cmder.agent = llm.Agent{
				Name:         v.GetString("agent.name"),
				Model:        v.GetString("agent.model"),
				Instructions: v.GetString("agent.instructions"),
			}
			cmder.prompt = v.GetString("agent.prompt")
			cmder.providerType = v.GetString("upstream.provider")
			cmder.upstream = v.GetString("upstream.url")
			cmder.delay = v.GetString("upstream.delay")
			cmder.authMode = v.GetString("auth.mode")
			cmder.issuer = v.GetString("auth.issuer")
			cmder.audience = v.GetString("auth.audience")
			cmder.jwksURL = v.GetString("auth.jwks_url")
			cmder.storageDriver = v.GetString("storage.driver")
			cmder.sqlitePath = v.GetString("storage.sqlite_path")
			cmder.postgresDSN = v.GetString("storage.postgres_dsn")
			cmder.publisher = v.GetString("events.publisher")
			cmder.brokers = v.GetString("events.brokers")
			cmder.topic = v.GetString("events.topic")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &cmder.workers)
	config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &cmder.providerType)
	config.AddStringFlag(cmd, config.Flags, config.FlagUpstream, &cmder.upstream)
	config.AddStringFlag(cmd, config.Flags, config.FlagDelay, &cmder.delay)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.agent.Model)
	config.AddStringFlag(cmd, config.Flags, config.FlagPrompt, &cmder.prompt)
	config.AddStringFlag(cmd, config.Flags, config.FlagAuthMode, &cmder.authMode)
	config.AddStringFlag(cmd, config.Flags, config.FlagIssuer, &cmder.issuer)
	config.AddStringFlag(cmd, config.Flags, config.FlagAudience, &cmder.audience)
	config.AddStringFlag(cmd, config.Flags, config.FlagJWKSURL, &cmder.jwksURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagStorage, &cmder.storageDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagPublisher, &cmder.publisher)
	config.AddStringFlag(cmd, config.Flags, config.FlagBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagTopic, &cmder.topic)

	cmd.Flags().StringVar(&cmder.logFormat, "log-format", "text", "Console log format: text, json or pretty")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append logs to this file")

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var closeLog func()
	var err error
	c.logger, closeLog, err = c.newLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	gen, err := c.newGenerator()
	if err != nil {
		return err
	}

	authn, err := c.newAuthenticator(ctx)
	if err != nil {
		return err
	}

	driver, err := c.newStorageDriver(ctx)
	if err != nil {
		return err
	}
	defer driver.Close()

	pub, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer pub.Close()

	srv, err := server.New(server.Config{
		ListenAddr:    c.listen,
		Agent:         c.agent,
		Prompt:        c.prompt,
		Generator:     gen,
		Authenticator: authn,
		Driver:        driver,
		Publisher:     pub,
		NumWorkers:    c.workers,
		QueueSize:     c.queueSize,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer srv.Close()

	c.logger.Info("starting ideas server",
		"addr", c.listen,
		"provider", c.providerType,
		"upstream", c.upstream,
		"model", c.agent.Model,
		"auth_mode", c.authMode,
		"storage", c.storageDriver,
		"publisher", c.publisher,
	)

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := srv.Run(); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return nil
	}
}

// newLogger builds the console logger. With --log-file, records are also
// appended to the file as JSON.
func (c *ServeCommander) newLogger() (*slog.Logger, func(), error) {
	format, err := logger.ParseFormat(c.logFormat)
	if err != nil {
		return nil, nil, err
	}

	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithSource(c.debug),
		logger.WithFormat(format),
		logger.WithWriter(os.Stdout),
		logger.WithComponent("server"),
	)
	if c.logFile == "" {
		return console, func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	file := logger.New(
		logger.WithDebug(c.debug),
		logger.WithFormat(logger.FormatJSON),
		logger.WithWriter(f),
		logger.WithComponent("server"),
	)

	return logger.Multi(console, file), func() { _ = f.Close() }, nil
}

func (c *ServeCommander) newGenerator() (llm.Generator, error) {
	cfg := provider.Config{
		Type:    c.providerType,
		BaseURL: c.upstream,
	}

	switch c.providerType {
	case provider.Script:
		if c.delay != "" {
			d, err := time.ParseDuration(c.delay)
			if err != nil {
				return nil, fmt.Errorf("parsing script delay: %w", err)
			}
			cfg.Delay = d
		}

	case provider.OpenAI, provider.Anthropic:
		mgr, err := credentials.NewManager(c.configDir)
		if err != nil {
			return nil, fmt.Errorf("loading credentials: %w", err)
		}
		key, err := mgr.ResolveKey(c.providerType, strings.TrimSpace(os.Getenv(config.EnvUpstreamAPIKey)))
		if err != nil {
			return nil, fmt.Errorf("resolving api key: %w", err)
		}
		if key == "" {
			c.logger.Warn("no upstream api key configured, requests will likely be rejected",
				"provider", c.providerType,
				"env", credentials.EnvVarForProvider(c.providerType),
			)
		}
		cfg.APIKey = key
	}

	gen, err := provider.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}
	return gen, nil
}

func (c *ServeCommander) newAuthenticator(ctx context.Context) (auth.Authenticator, error) {
	cfg := auth.Config{
		Mode:      c.authMode,
		Issuer:    c.issuer,
		Audiences: splitList(c.audience),
		JWKSURL:   c.jwksURL,
	}
	if c.authMode == auth.ModeHS256 {
		cfg.Secret = os.Getenv(config.EnvAuthSecret)
		if cfg.Secret == "" {
			return nil, fmt.Errorf("auth mode %s requires %s", auth.ModeHS256, config.EnvAuthSecret)
		}
	}

	a, err := auth.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating authenticator: %w", err)
	}
	return a, nil
}

func (c *ServeCommander) newStorageDriver(ctx context.Context) (storage.Driver, error) {
	switch c.storageDriver {
	case "", "memory":
		c.logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	case "sqlite":
		if c.sqlitePath == "" {
			return nil, errors.New("sqlite storage requires --sqlite")
		}
		driver, err := sqlite.NewDriver(ctx, c.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite driver: %w", err)
		}
		c.logger.Info("using SQLite storage", "path", c.sqlitePath)
		return driver, nil

	case "postgres":
		if c.postgresDSN == "" {
			return nil, errors.New("postgres storage requires --postgres")
		}
		driver, err := postgres.NewDriver(ctx, c.postgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL driver: %w", err)
		}
		c.logger.Info("using PostgreSQL storage")
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %q", c.storageDriver)
	}
}

func (c *ServeCommander) newPublisher() (eventstream.Publisher, error) {
	switch c.publisher {
	case "", "nop":
		return nop.NewPublisher(), nil

	case "kafka":
		pub, err := kafka.NewPublisher(kafka.Config{
			Brokers: splitList(c.brokers),
			Topic:   c.topic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		c.logger.Info("publishing idea events to kafka", "topic", c.topic)
		return pub, nil

	default:
		return nil, fmt.Errorf("unknown event publisher: %q", c.publisher)
	}
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
