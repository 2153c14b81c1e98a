package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/gregoriusjimmy/llm-council/internal/anthropic"
	"github.com/gregoriusjimmy/llm-council/internal/council"
	"github.com/gregoriusjimmy/llm-council/internal/gemini"
	"github.com/gregoriusjimmy/llm-council/internal/ollama"
	"github.com/gregoriusjimmy/llm-council/internal/openai"
)

// Config holds the configuration for llm-council
type Config struct {
	DefaultProvider         string                  `toml:"default_provider" mapstructure:"default_provider"` // Provider for model ids without a "provider:" prefix
	OllamaBaseURL           string                  `toml:"ollama_base_url" mapstructure:"ollama_base_url"`
	OllamaToken             string                  `toml:"ollama_token" mapstructure:"ollama_token"`
	OpenAIBaseURL           string                  `toml:"openai_base_url" mapstructure:"openai_base_url"`
	OpenAIToken             string                  `toml:"openai_token" mapstructure:"openai_token"`
	AnthropicBaseURL        string                  `toml:"anthropic_base_url" mapstructure:"anthropic_base_url"`
	AnthropicToken          string                  `toml:"anthropic_token" mapstructure:"anthropic_token"`
	GeminiBaseURL           string                  `toml:"gemini_base_url" mapstructure:"gemini_base_url"`
	GeminiToken             string                  `toml:"gemini_token" mapstructure:"gemini_token"`
	ChairmanModel           string                  `toml:"chairman_model" mapstructure:"chairman_model"`
	AdvisorTimeout          string                  `toml:"advisor_timeout" mapstructure:"advisor_timeout"`   // Go duration, e.g. "180s"
	CritiqueTimeout         string                  `toml:"critique_timeout" mapstructure:"critique_timeout"` // Go duration, e.g. "180s"
	HistoryWindow           int                     `toml:"history_window" mapstructure:"history_window"`
	PromptDirs              []string                `toml:"prompt_dirs" mapstructure:"prompt_dirs"`
	SessionRetentionDays    int                     `toml:"session_retention_days" mapstructure:"session_retention_days"`       // Number of days to retain sessions (default: 30)
	SessionMessageThreshold int                     `toml:"session_message_threshold" mapstructure:"session_message_threshold"` // Warn when a session grows past this many messages (0 disables)
	ServerAddr              string                  `toml:"server_addr" mapstructure:"server_addr"`
	AllowedOrigins          []string                `toml:"allowed_origins" mapstructure:"allowed_origins"`
	Advisors                []council.AdvisorConfig `toml:"advisors" mapstructure:"advisors"`
}

// NewDefaultConfig returns a new Config with default values
func NewDefaultConfig(promptDir string) *Config {
	return &Config{
		DefaultProvider:         ollama.ProviderName,
		OllamaBaseURL:           ollama.DefaultBaseURL,
		OllamaToken:             "$OLLAMA_API_KEY",
		OpenAIBaseURL:           openai.DefaultBaseURL,
		OpenAIToken:             "$OPENAI_API_KEY", // Default to env var
		AnthropicBaseURL:        anthropic.DefaultBaseURL,
		AnthropicToken:          "$ANTHROPIC_API_KEY",
		GeminiBaseURL:           gemini.DefaultBaseURL,
		GeminiToken:             "$GEMINI_API_KEY",
		ChairmanModel:           council.DefaultChairmanModel,
		AdvisorTimeout:          council.DefaultAdvisorTimeout.String(),
		CritiqueTimeout:         council.DefaultCritiqueTimeout.String(),
		HistoryWindow:           council.DefaultHistoryWindow,
		PromptDirs:              []string{promptDir},
		SessionRetentionDays:    30, // Default: delete sessions older than 30 days
		SessionMessageThreshold: 50,
		ServerAddr:              "127.0.0.1:8080",
		AllowedOrigins:          []string{"http://localhost:3000"},
		Advisors:                council.DefaultAdvisors(),
	}
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand $VAR references in endpoints and credentials
	for _, field := range []*string{
		&config.OllamaBaseURL, &config.OllamaToken,
		&config.OpenAIBaseURL, &config.OpenAIToken,
		&config.AnthropicBaseURL, &config.AnthropicToken,
		&config.GeminiBaseURL, &config.GeminiToken,
	} {
		*field = expandEnvVar(*field)
	}

	// Convert prompt directories to absolute paths
	for i, promptDir := range config.PromptDirs {
		absPath, err := ResolvePath(promptDir)
		if err != nil {
			return nil, fmt.Errorf("error resolving prompt directory path '%s': %w", promptDir, err)
		}
		config.PromptDirs[i] = absPath
	}

	if _, err := config.Timeouts(); err != nil {
		return nil, err
	}
	return config, nil
}

// Timeouts holds the parsed call timeouts.
type Timeouts struct {
	Advisor  time.Duration
	Critique time.Duration
}

// Timeouts parses advisor_timeout and critique_timeout. Empty values fall
// back to the council defaults.
func (c *Config) Timeouts() (Timeouts, error) {
	t := Timeouts{Advisor: council.DefaultAdvisorTimeout, Critique: council.DefaultCritiqueTimeout}
	if c.AdvisorTimeout != "" {
		d, err := parsePositiveDuration(c.AdvisorTimeout)
		if err != nil {
			return t, fmt.Errorf("invalid advisor_timeout: %w", err)
		}
		t.Advisor = d
	}
	if c.CritiqueTimeout != "" {
		d, err := parsePositiveDuration(c.CritiqueTimeout)
		if err != nil {
			return t, fmt.Errorf("invalid critique_timeout: %w", err)
		}
		t.Critique = d
	}
	return t, nil
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}

// Council builds the configured council, falling back to the stock advisors
// when none are configured.
func (c *Config) Council() *council.Council {
	advisors := c.Advisors
	if len(advisors) == 0 {
		advisors = council.DefaultAdvisors()
	}
	return council.New(advisors, c.ChairmanModel)
}
