package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gregoriusjimmy/llm-council/internal/config"
	"github.com/gregoriusjimmy/llm-council/internal/council"
	"github.com/gregoriusjimmy/llm-council/internal/metrics"
	"github.com/gregoriusjimmy/llm-council/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the council over HTTP and websockets",
	Long: `Start an HTTP server exposing the council.

Endpoints:
  GET  /health              Health check
  GET  /prometheus          Prometheus metrics
  GET  /api/v1/council      Current council
  PUT  /api/v1/council      Replace the council
  GET  /api/v1/models/check Configured models missing from the providers
  POST /api/v1/turns        Run a turn and return the full answer
  GET  /api/v1/turns/ws     Websocket: send {"prompt", "history"}, receive phase,
                            advisor, chunk and done events

The council is reloaded when the config file changes; turns in flight keep
the council they started with.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(councilFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.ServerAddr = serveAddr
		}

		m, err := newManager(cfg, council.WithRecorder(metrics.New(prometheus.DefaultRegisterer)))
		if err != nil {
			return err
		}

		// A council file given on the command line pins the council
		if councilFile == "" && viper.ConfigFileUsed() != "" {
			viper.OnConfigChange(func(e fsnotify.Event) {
				reloadCouncil(m, e)
			})
			viper.WatchConfig()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(m, server.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			Logger:         logger,
		})
		fmt.Fprintf(os.Stderr, "Serving the council on http://%s\n", cfg.ServerAddr)
		return srv.ListenAndServe(ctx, cfg.ServerAddr)
	},
}

func reloadCouncil(m *council.Manager, e fsnotify.Event) {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("config reload failed, keeping current council", "file", e.Name, "error", err)
		return
	}
	c := cfg.Council()
	m.SetCouncil(c.Advisors, c.Chairman.Model)
	logger.Info("council reloaded", "file", e.Name, "op", e.Op.String())
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server_addr)")
	serveCmd.Flags().StringVar(&councilFile, "council", "", "Council definition file (.toml, .yaml or .yml)")
}
