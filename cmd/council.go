package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// councilCmd represents the council command
var councilCmd = &cobra.Command{
	Use:   "council",
	Short: "Inspect the configured council",
}

// councilShowCmd represents the council show command
var councilShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the advisors and the chairman",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(councilFile)
		if err != nil {
			return err
		}
		c := cfg.Council()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tNAME\tMODEL\tROLE")
		fmt.Fprintln(w, "-\t----\t-----\t----")
		for i, a := range c.Advisors {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, a.Name, a.Model, firstLine(a.Role))
		}
		fmt.Fprintf(w, "-\t%s\t%s\t%s\n", c.Chairman.Name, c.Chairman.Model, firstLine(c.Chairman.Role))
		return w.Flush()
	},
}

// councilCheckCmd represents the council check command
var councilCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that every configured model is available",
	Long: `Ask the configured providers for their model lists and report any
advisor or chairman model that is not listed. The check is advisory; a turn
with an unavailable model still runs and reports that advisor as failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(councilFile)
		if err != nil {
			return err
		}
		m, err := newManager(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		missing, err := m.CheckModelsAvailability(ctx)
		if err != nil {
			return fmt.Errorf("checking models: %w", err)
		}
		if len(missing) == 0 {
			fmt.Println(okStyle.Render("All council models are available."))
			return nil
		}

		fmt.Println(timeoutStyle.Render("Models not found on any provider:"))
		for _, model := range missing {
			fmt.Printf("  - %s\n", model)
		}
		fmt.Println("\nSee 'llm-council models' for what is available.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(councilCmd)
	councilCmd.AddCommand(councilShowCmd)
	councilCmd.AddCommand(councilCheckCmd)
	councilCmd.PersistentFlags().StringVar(&councilFile, "council", "", "Council definition file (.toml, .yaml or .yml)")
}
