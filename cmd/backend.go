package cmd

import (
	"fmt"

	"github.com/gregoriusjimmy/llm-council/internal/anthropic"
	"github.com/gregoriusjimmy/llm-council/internal/backend"
	"github.com/gregoriusjimmy/llm-council/internal/config"
	"github.com/gregoriusjimmy/llm-council/internal/council"
	"github.com/gregoriusjimmy/llm-council/internal/gemini"
	"github.com/gregoriusjimmy/llm-council/internal/ollama"
	"github.com/gregoriusjimmy/llm-council/internal/openai"
)

// newRouter registers a client for every configured provider.
func newRouter(cfg *config.Config) (*backend.Router, error) {
	router := backend.NewRouter(cfg.DefaultProvider)
	for _, provider := range config.Providers {
		if !cfg.Configured(provider) {
			logger.Debug("provider not configured, skipping", "provider", provider)
			continue
		}
		switch provider {
		case ollama.ProviderName:
			router.Register(provider, ollama.NewClient(cfg))
		case openai.ProviderName:
			router.Register(provider, openai.NewClient(cfg))
		case anthropic.ProviderName:
			router.Register(provider, anthropic.NewClient(cfg))
		case gemini.ProviderName:
			router.Register(provider, gemini.NewClient(cfg))
		}
	}

	if len(router.Providers()) == 0 {
		return nil, fmt.Errorf("no provider is configured; run 'llm-council init' or set COUNCIL_OLLAMA_BASE_URL")
	}
	return router, nil
}

// newManager builds a council manager for cfg with its configured council.
func newManager(cfg *config.Config, opts ...council.Option) (*council.Manager, error) {
	router, err := newRouter(cfg)
	if err != nil {
		return nil, err
	}

	timeouts, err := cfg.Timeouts()
	if err != nil {
		return nil, err
	}

	opts = append([]council.Option{
		council.WithAdvisorTimeout(timeouts.Advisor),
		council.WithCritiqueTimeout(timeouts.Critique),
		council.WithHistoryWindow(cfg.HistoryWindow),
		council.WithLogger(logger),
	}, opts...)

	m := council.NewManager(router, opts...)
	c := cfg.Council()
	m.SetCouncil(c.Advisors, c.Chairman.Model)
	return m, nil
}

// loadConfig loads the configuration and overlays a council file if given.
func loadConfig(councilFile string) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if councilFile != "" {
		cf, err := config.LoadCouncilFile(councilFile)
		if err != nil {
			return nil, err
		}
		cf.Apply(cfg)
	}
	return cfg, nil
}
