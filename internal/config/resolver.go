package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/gregoriusjimmy/llm-council/internal/anthropic"
	"github.com/gregoriusjimmy/llm-council/internal/gemini"
	"github.com/gregoriusjimmy/llm-council/internal/ollama"
	"github.com/gregoriusjimmy/llm-council/internal/openai"
)

// Providers lists every provider the config knows how to address.
var Providers = []string{ollama.ProviderName, openai.ProviderName, anthropic.ProviderName, gemini.ProviderName}

// expandEnvVar expands an environment variable reference.
// Supports both $VAR and ${VAR} syntax; an unset variable expands to "".
func expandEnvVar(value string) string {
	if !strings.HasPrefix(value, "$") {
		return value
	}

	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		return os.Getenv(value[2 : len(value)-1])
	}
	return os.Getenv(strings.TrimPrefix(value, "$"))
}

func (c *Config) providerFields(provider string) (baseURL, token string, err error) {
	switch provider {
	case ollama.ProviderName:
		return c.OllamaBaseURL, c.OllamaToken, nil
	case openai.ProviderName:
		return c.OpenAIBaseURL, c.OpenAIToken, nil
	case anthropic.ProviderName:
		return c.AnthropicBaseURL, c.AnthropicToken, nil
	case gemini.ProviderName:
		return c.GeminiBaseURL, c.GeminiToken, nil
	default:
		return "", "", fmt.Errorf("unsupported provider: %s", provider)
	}
}

// GetBaseURL returns the base URL for the specified provider
// Environment variables are already expanded during LoadConfig()
func (c *Config) GetBaseURL(provider string) (string, error) {
	baseURL, _, err := c.providerFields(provider)
	if err != nil {
		return "", err
	}

	// Validate that base URL is not empty
	if baseURL == "" {
		return "", fmt.Errorf("%s base URL is not configured. Set it in config file (%s_base_url) or environment variable (COUNCIL_%s_BASE_URL)", provider, provider, strings.ToUpper(provider))
	}
	return baseURL, nil
}

// GetToken returns the token for the specified provider
// Environment variables are already expanded during LoadConfig()
func (c *Config) GetToken(provider string) (string, error) {
	_, token, err := c.providerFields(provider)
	if err != nil {
		return "", err
	}

	// Validate that token is not empty
	if token == "" {
		return "", fmt.Errorf("%s token is not configured. Set it in config file (%s_token) or environment variable (COUNCIL_%s_TOKEN)", provider, provider, strings.ToUpper(provider))
	}
	return token, nil
}

// Configured reports whether a provider can be called: Ollama needs only a
// base URL, hosted providers also need a token.
func (c *Config) Configured(provider string) bool {
	baseURL, token, err := c.providerFields(provider)
	if err != nil || baseURL == "" {
		return false
	}
	return provider == ollama.ProviderName || token != ""
}

// ResolvePath converts a relative path to absolute path if needed
func ResolvePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}

	// Get config file directory as base directory
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		// If no config file is used, fall back to current working directory
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("error getting current working directory: %w", err)
		}
		return filepath.Join(cwd, path), nil
	}

	// Use config file directory as base
	configDir := filepath.Dir(configFile)

	// If configDir is relative, make it absolute
	if !filepath.IsAbs(configDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("error getting current working directory: %w", err)
		}
		configDir = filepath.Join(cwd, configDir)
	}

	return filepath.Join(configDir, path), nil
}
