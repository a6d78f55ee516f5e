package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/redlinehq/redline/internal/config"
	"github.com/redlinehq/redline/internal/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Redline server",
	Long: `Start the Redline HTTP server.

The server provides:
  - /health                       - Basic health check
  - /status                       - Providers and document count
  - /api/documents                - Document CRUD
  - /api/documents/{id}/chat      - One chat turn against a document
  - /api/citations/preview        - Parse/resolve citation tokens

Examples:
  redline serve                   # Start on default port 8585
  redline serve --port 3000       # Start on custom port
  redline serve --host 0.0.0.0    # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfg := cfgMgr.Get()

		logger := newLogger(cfg.Logging)
		slog.SetDefault(logger)

		cfgMgr.WatchConfig()

		host := cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host = serveHost
		}
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			ConfigManager: cfgMgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Blocks until shutdown.
		return srv.Start(ctx)
	},
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

var initConfigCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.yaml to the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "config.yaml"
		if cfgFile != "" {
			path = cfgFile
		}
		if _, err := os.Stat(path); err == nil {
			return os.ErrExist
		}
		return config.WriteDefault(path)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().IntVar(&servePort, "port", 8585, "Port to listen on")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initConfigCmd)
}
