package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gregoriusjimmy/llm-council/internal/config"
)

const configFields = "configfile, default_provider, chairman_model, advisor_timeout, critique_timeout, history_window, promptdirs, server_addr, <provider>_base_url, <provider>_token"

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config [field]",
	Short: "Display current configuration",
	Long: `Display the current configuration values.
This command shows all configuration values loaded from the config file and environment variables.
Tokens are masked.

If a field name is specified, only that field's value is displayed.
Available fields: ` + configFields + `

Examples:
  llm-council config                  # Show all configuration
  llm-council config chairman_model   # Show only the chairman model
  llm-council config openai_token     # Show only the (masked) OpenAI token`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if len(args) > 0 {
			value, ok := configField(cfg, strings.ToLower(args[0]))
			if !ok {
				fmt.Fprintf(os.Stderr, "Unknown field: %s\n", args[0])
				fmt.Fprintf(os.Stderr, "Available fields: %s\n", configFields)
				os.Exit(1)
			}
			fmt.Println(value)
			return nil
		}

		fmt.Printf("ConfigFile: %s\n", viper.ConfigFileUsed())
		fmt.Printf("DefaultProvider: %s\n", cfg.DefaultProvider)
		for _, provider := range config.Providers {
			baseURL, _ := configField(cfg, provider+"_base_url")
			token, _ := configField(cfg, provider+"_token")
			fmt.Printf("%sBaseURL: %s\n", providerLabel(provider), baseURL)
			fmt.Printf("%sToken: %s\n", providerLabel(provider), token)
		}
		fmt.Printf("ChairmanModel: %s\n", cfg.ChairmanModel)
		fmt.Printf("AdvisorTimeout: %s\n", cfg.AdvisorTimeout)
		fmt.Printf("CritiqueTimeout: %s\n", cfg.CritiqueTimeout)
		fmt.Printf("HistoryWindow: %d\n", cfg.HistoryWindow)
		fmt.Printf("Advisors: %d\n", len(cfg.Council().Advisors))
		fmt.Printf("PromptDirectories: %s\n", strings.Join(cfg.PromptDirs, ","))
		fmt.Printf("SessionRetentionDays: %d\n", cfg.SessionRetentionDays)
		fmt.Printf("SessionMessageThreshold: %d\n", cfg.SessionMessageThreshold)
		fmt.Printf("ServerAddr: %s\n", cfg.ServerAddr)
		fmt.Printf("AllowedOrigins: %s\n", strings.Join(cfg.AllowedOrigins, ","))
		return nil
	},
}

func configField(cfg *config.Config, field string) (string, bool) {
	for _, provider := range config.Providers {
		switch field {
		case provider + "_base_url":
			baseURL, _ := cfg.GetBaseURL(provider)
			return baseURL, true
		case provider + "_token":
			token, err := cfg.GetToken(provider)
			if err != nil {
				return "(not set)", true
			}
			return maskToken(token), true
		}
	}

	switch field {
	case "configfile":
		return viper.ConfigFileUsed(), true
	case "default_provider":
		return cfg.DefaultProvider, true
	case "chairman_model":
		return cfg.ChairmanModel, true
	case "advisor_timeout":
		return cfg.AdvisorTimeout, true
	case "critique_timeout":
		return cfg.CritiqueTimeout, true
	case "history_window":
		return fmt.Sprint(cfg.HistoryWindow), true
	case "promptdirs":
		return strings.Join(cfg.PromptDirs, ","), true
	case "server_addr":
		return cfg.ServerAddr, true
	}
	return "", false
}

func providerLabel(provider string) string {
	switch provider {
	case "openai":
		return "OpenAI"
	default:
		return strings.ToUpper(provider[:1]) + provider[1:]
	}
}

// maskToken returns a masked version of the token for security
func maskToken(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)
}
