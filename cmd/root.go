package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gregoriusjimmy/llm-council/internal/config"
)

var (
	cfgFile string
	verbose bool

	// logger is configured by initConfig; debug when --verbose is set.
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "llm-council",
	Short: "Ask a council of LLMs and get one synthesized answer",
	Long: `llm-council sends your question to several advisor models in parallel.
A chairman model privately critiques their answers and then streams a single
synthesized response.

Models may be addressed as "provider:model" (e.g. openai:gpt-4.1) or by bare
id, which is sent to the default provider (ollama unless configured).
You can configure the tool using a TOML configuration file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/llm-council/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// Set environment variable prefix and automatic env
	viper.SetEnvPrefix("COUNCIL")
	viper.AutomaticEnv()

	// Determine config directory for user config
	home, err := os.UserHomeDir()
	cobra.CheckErr(err)
	userConfigDir := filepath.Join(home, ".config", "llm-council")

	// Later directories in the array take precedence over earlier ones
	defaultPromptDirs := []string{
		"/usr/share/llm-council/prompts",
		"/usr/local/share/llm-council/prompts",
		filepath.Join(userConfigDir, "prompts"),
	}
	defaultConfig := config.NewDefaultConfig(filepath.Join(userConfigDir, "prompts"))

	viper.SetDefault("default_provider", defaultConfig.DefaultProvider)
	viper.SetDefault("ollama_base_url", defaultConfig.OllamaBaseURL)
	viper.SetDefault("ollama_token", defaultConfig.OllamaToken)
	viper.SetDefault("openai_base_url", defaultConfig.OpenAIBaseURL)
	viper.SetDefault("openai_token", defaultConfig.OpenAIToken)
	viper.SetDefault("anthropic_base_url", defaultConfig.AnthropicBaseURL)
	viper.SetDefault("anthropic_token", defaultConfig.AnthropicToken)
	viper.SetDefault("gemini_base_url", defaultConfig.GeminiBaseURL)
	viper.SetDefault("gemini_token", defaultConfig.GeminiToken)
	viper.SetDefault("chairman_model", defaultConfig.ChairmanModel)
	viper.SetDefault("advisor_timeout", defaultConfig.AdvisorTimeout)
	viper.SetDefault("critique_timeout", defaultConfig.CritiqueTimeout)
	viper.SetDefault("history_window", defaultConfig.HistoryWindow)
	viper.SetDefault("prompt_dirs", defaultPromptDirs)
	viper.SetDefault("session_retention_days", defaultConfig.SessionRetentionDays)
	viper.SetDefault("session_message_threshold", defaultConfig.SessionMessageThreshold)
	viper.SetDefault("server_addr", defaultConfig.ServerAddr)
	viper.SetDefault("allowed_origins", defaultConfig.AllowedOrigins)

	// Bind environment variables; AutomaticEnv does not reach viper.Unmarshal
	for _, key := range []string{
		"default_provider", "chairman_model",
		"ollama_base_url", "ollama_token",
		"openai_base_url", "openai_token",
		"anthropic_base_url", "anthropic_token",
		"gemini_base_url", "gemini_token",
		"advisor_timeout", "critique_timeout", "history_window",
		"session_message_threshold", "server_addr",
	} {
		viper.BindEnv(key)
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	} else {
		// Load system-wide config first (lower priority)
		for _, path := range []string{"/etc/llm-council", "/usr/local/etc/llm-council"} {
			viper.AddConfigPath(path)
		}
		viper.SetConfigType("toml")
		viper.SetConfigName("config")

		systemConfigLoaded := false
		if err := viper.ReadInConfig(); err == nil {
			systemConfigLoaded = true
			logger.Debug("loaded system-wide config", "file", viper.ConfigFileUsed())
		}

		// Load user config (higher priority) - merge with system config
		viper.AddConfigPath(userConfigDir)
		if systemConfigLoaded {
			if err := viper.MergeInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					fmt.Fprintf(os.Stderr, "Error merging user config file: %v\n", err)
				}
			} else {
				logger.Debug("merged user config", "file", viper.ConfigFileUsed())
			}
		} else if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			}
		}
	}

	logger.Debug("configuration loaded",
		"config_file", viper.ConfigFileUsed(),
		"default_provider", viper.GetString("default_provider"),
		"chairman_model", viper.GetString("chairman_model"),
		"advisor_timeout", viper.GetString("advisor_timeout"),
		"prompt_dirs", viper.GetStringSlice("prompt_dirs"))
}
