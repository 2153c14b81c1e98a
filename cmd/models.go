package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gregoriusjimmy/llm-council/internal/backend"
	"github.com/gregoriusjimmy/llm-council/internal/config"
)

// modelsCmd represents the models command
var modelsCmd = &cobra.Command{
	Use:   "models [provider]",
	Short: "List available models for the configured provider(s)",
	Long: `List all available models for the specified provider.
Fetches the latest model information directly from the provider's API.

Supported providers: ollama, openai, anthropic, gemini

If no provider is specified, lists models from every configured provider.

Example:
  llm-council models           # List models from all providers
  llm-council models ollama    # List Ollama models`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if len(args) > 0 && !slices.Contains(config.Providers, args[0]) {
			return fmt.Errorf("unsupported provider '%s'\nSupported providers: %s", args[0], strings.Join(config.Providers, ", "))
		}

		router, err := newRouter(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var results []backend.ProviderModels
		for _, pm := range router.ListProviderModels(ctx) {
			if len(args) > 0 && pm.Provider != args[0] {
				continue
			}
			if pm.Err == nil && len(pm.Models) == 0 {
				pm.Err = fmt.Errorf("no models returned from API")
			}
			results = append(results, pm)
		}
		if len(args) > 0 && len(results) == 0 {
			return fmt.Errorf("provider '%s' is not configured", args[0])
		}

		// Display successful results first
		successCount := 0
		for _, result := range results {
			if result.Err != nil {
				continue
			}
			if successCount > 0 {
				fmt.Println()
			}
			successCount++
			printModels(result, result.Provider == cfg.DefaultProvider)
		}

		// Display errors at the end
		errorCount := 0
		for _, result := range results {
			if result.Err == nil {
				continue
			}
			if errorCount == 0 && successCount > 0 {
				fmt.Println()
			}
			errorCount++
			fmt.Fprintf(os.Stderr, "Warning: Skipping %s - %v\n", result.Provider, result.Err)
		}
		return nil
	},
}

func printModels(result backend.ProviderModels, isDefault bool) {
	fmt.Printf("Available models for %s:\n\n", result.Provider)

	// Models of the default provider may be given without a prefix
	name := func(id string) string {
		if isDefault {
			return id
		}
		return backend.FormatModelString(result.Provider, id)
	}

	maxModelWidth := 15
	for _, model := range result.Models {
		maxModelWidth = max(maxModelWidth, len(name(model.ID)))
	}

	fmt.Printf("%-*s  %s\n", maxModelWidth, "MODEL", "DESCRIPTION")
	fmt.Printf("%s  %s\n", strings.Repeat("-", maxModelWidth), strings.Repeat("-", 50))
	for _, model := range result.Models {
		fmt.Printf("%-*s  %s\n", maxModelWidth, name(model.ID), model.Description)
	}
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
