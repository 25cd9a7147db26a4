package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/blocklens/blocklens/internal/config"
	"github.com/blocklens/blocklens/internal/home"
	"github.com/blocklens/blocklens/internal/server"
	"github.com/blocklens/blocklens/internal/server/endpoints"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Blocklens server",
	Long: `Start the Blocklens HTTP server.

The server watches the config file and reloads the extractor
registry when it changes.

Endpoints:
  /health - Basic server health check
  /ready  - Readiness check (store and run manager)
  /docs   - API documentation

Examples:
  blocklens serve                    # Start on default port 8080
  blocklens serve --port 3000        # Start on custom port
  blocklens serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}

		srv, err := server.New(server.Config{
			Host:            serveHost,
			Port:            servePort,
			Home:            h,
			ConfigManager:   cfgMgr,
			Logger:          logger,
			SwaggerSpecPath: endpoints.GetSwaggerSpecPath(),
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
