// Package app wires configuration into a running assistant: store, tools,
// model clients, coordinator and chat service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"miseagent"
	"miseagent/amazon"
	"miseagent/coordinator"
	"miseagent/coordinator/bedrock"
	"miseagent/coordinator/mock"
	"miseagent/coordinator/openai"
	"miseagent/slack"
	"miseagent/tools"
	"miseagent/tools/storage"
)

const (
	ProviderBedrock = "bedrock"
	ProviderMock    = "mock"
)

type Config struct {
	Model     miseagent.ModelConfig
	Providers miseagent.ProviderConfig
	Agent     miseagent.AgentConfig
	Database  miseagent.DatabaseConfig
	Server    miseagent.ServerConfig
	Amazon    miseagent.AmazonConfig
	MCP       miseagent.MCPConfig
	Slack     miseagent.SlackConfig
}

// LoadConfig decodes every config struct from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	for _, target := range []any{&cfg.Model, &cfg.Providers, &cfg.Agent, &cfg.Database, &cfg.Server, &cfg.Amazon, &cfg.MCP, &cfg.Slack} {
		if err := envdecode.Decode(target); err != nil {
			return Config{}, fmt.Errorf("decode config: %w", err)
		}
	}
	return cfg, nil
}

// Options overrides parts of the wiring, mostly for tests and the Lambda.
type Options struct {
	Store  storage.Store
	LLM    coordinator.LLM
	Logger miseagent.CoordinationLogger
}

type App struct {
	Config      Config
	Store       storage.Store
	Registry    *tools.Registry
	Coordinator *coordinator.Coordinator
	Chat        *coordinator.Chat
	Shared      *tools.SharedLists

	closers []func() error
}

// New builds the application.
func New(ctx context.Context, cfg Config, opts Options) (*App, error) {
	a := &App{Config: cfg}

	store := opts.Store
	if store == nil {
		s, closer, err := OpenStore(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		store = s
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}
	a.Store = store

	var searcher tools.ProductSearcher
	if cfg.Amazon.APIKey != "" {
		searcher = amazon.NewClient(cfg.Amazon.APIKey, cfg.Amazon.Host, cfg.Amazon.BaseURL, &http.Client{Timeout: 20 * time.Second})
	} else {
		slog.Warn("SETUP: RAPIDAPI_KEY not set, Amazon search is disabled")
	}

	var restock tools.RestockFunc
	if cfg.Slack.WebhookURL != "" {
		restock = slack.NewClient(cfg.Slack.WebhookURL, http.DefaultClient).Restock(cfg.Slack.Channel)
	}

	registry, err := tools.NewDefaultRegistry(store, tools.Options{
		Searcher:    searcher,
		Country:     cfg.Agent.Country,
		SearchDelay: cfg.Agent.SearchDelay,
		Restock:     restock,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build tool registry: %w", err)
	}
	a.Registry = registry
	slog.Info("SETUP: Tool registry ready", "tools", len(registry.GetTools()))

	llm := opts.LLM
	if llm == nil {
		if llm, err = NewLLM(ctx, cfg); err != nil {
			a.Close()
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		if logger, err = newCoordinationLogger(ctx, cfg); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Coordinator = coordinator.NewCoordinator(llm, registry, tools.NewDispatcher(registry, cfg.Agent.DispatchConcurrency), coordinator.Options{
		MaxIterations: cfg.Agent.MaxIterations,
		Logger:        logger,
		Debug:         cfg.Agent.DebugDump,
	})
	a.Chat = coordinator.NewChat(store, a.Coordinator, cfg.Agent.TurnTimeout)
	a.Shared = tools.NewSharedLists(store, store)
	return a, nil
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenStore connects to Postgres when a database URL is configured and falls
// back to an in-memory store otherwise.
func OpenStore(ctx context.Context, cfg miseagent.DatabaseConfig) (storage.Store, func() error, error) {
	if cfg.URL == "" {
		slog.Warn("SETUP: DATABASE_URL not set, using in-memory store")
		return storage.NewMemory(), nil, nil
	}
	pg, err := storage.OpenPostgres(ctx, cfg.URL, cfg.MaxOpenConns, cfg.MaxIdleConns)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("SETUP: Connected to Postgres")
	return pg, pg.Close, nil
}

// NewLLM builds the configured primary model and, when one is configured and
// usable, wraps it with the fallback model.
func NewLLM(ctx context.Context, cfg Config) (coordinator.LLM, error) {
	primary, err := newProviderLLM(ctx, cfg, cfg.Model.Provider, cfg.Model.ModelID)
	if err != nil {
		return nil, fmt.Errorf("primary model: %w", err)
	}
	if cfg.Model.FallbackProvider == "" {
		return primary, nil
	}

	secondary, err := newProviderLLM(ctx, cfg, cfg.Model.FallbackProvider, cfg.Model.FallbackModelID)
	if err != nil {
		slog.Warn("SETUP: Fallback model unavailable", "provider", cfg.Model.FallbackProvider, "error", err)
		return primary, nil
	}
	return coordinator.NewFallback(primary, secondary), nil
}

func newProviderLLM(ctx context.Context, cfg Config, provider, modelID string) (coordinator.LLM, error) {
	m := cfg.Model
	switch strings.ToLower(provider) {
	case ProviderMock:
		return mock.NewLLMClient(), nil

	case ProviderBedrock:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRetryMaxAttempts(5))
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		return bedrock.NewLLMClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.LLMOptions{
			ModelID:     modelID,
			MaxTokens:   m.MaxTokens,
			Temperature: m.Temperature,
			TopP:        m.TopP,
		}), nil

	case openai.ProviderGemini, openai.ProviderGroq, openai.ProviderOllama:
		opts := openai.LLMOptions{
			Provider:    strings.ToLower(provider),
			ModelID:     modelID,
			MaxTokens:   int(m.MaxTokens),
			Temperature: m.Temperature,
			TopP:        m.TopP,
		}
		p := cfg.Providers
		switch opts.Provider {
		case openai.ProviderGemini:
			opts.APIKey, opts.BaseURL = p.GeminiAPIKey, p.GeminiBaseURL
		case openai.ProviderGroq:
			opts.APIKey, opts.BaseURL = p.GroqAPIKey, p.GroqBaseURL
		case openai.ProviderOllama:
			opts.BaseURL = p.OllamaBaseURL
		}
		return openai.NewLLMClient(opts)
	}
	return nil, fmt.Errorf("unknown model provider %q", provider)
}

func newCoordinationLogger(ctx context.Context, cfg Config) (miseagent.CoordinationLogger, error) {
	if cfg.Agent.LogBucket == "" {
		return miseagent.NewNoOpCoordinationLogger(), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	archive := storage.NewS3Archive(s3.NewFromConfig(awsCfg), cfg.Agent.LogBucket, cfg.Agent.LogPrefix)
	slog.Info("SETUP: Archiving coordination logs to S3", "bucket", cfg.Agent.LogBucket)
	return miseagent.NewS3CoordinationLogger(archive, cfg.Model.ModelID), nil
}
