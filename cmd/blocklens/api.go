package main

import (
	"github.com/spf13/cobra"

	"github.com/blocklens/blocklens/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Blocklens server via HTTP.

These commands require a running server (blocklens serve).
Use --server to specify a custom server URL.

Examples:
  blocklens api health                    # Check server health
  blocklens api documents list            # List ingested documents
  blocklens api pages coverage <doc> 1    # Score providers on page 1
  blocklens api runs create <doc>         # Start a benchmark run`,
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Document management commands",
}

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Page region and scoring commands",
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Benchmark run commands",
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Configuration settings commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ListExtractorsEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.SwaggerEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.SwaggerUIEndpoint{}).Command(getServerURL))

	// Documents as subcommand group
	documentsCmd.AddCommand((&endpoints.ListDocumentsEndpoint{}).Command(getServerURL))
	documentsCmd.AddCommand((&endpoints.GetDocumentEndpoint{}).Command(getServerURL))
	documentsCmd.AddCommand((&endpoints.DeleteDocumentEndpoint{}).Command(getServerURL))
	documentsCmd.AddCommand((&endpoints.DocumentCoverageEndpoint{}).Command(getServerURL))

	// Pages as subcommand group
	pagesCmd.AddCommand((&endpoints.PageRegionsEndpoint{}).Command(getServerURL))
	pagesCmd.AddCommand((&endpoints.ReferenceEndpoint{}).Command(getServerURL))
	pagesCmd.AddCommand((&endpoints.CoverageEndpoint{}).Command(getServerURL))

	// Runs as subcommand group
	runsCmd.AddCommand((&endpoints.CreateRunEndpoint{}).Command(getServerURL))
	runsCmd.AddCommand((&endpoints.ListRunsEndpoint{}).Command(getServerURL))
	runsCmd.AddCommand((&endpoints.GetRunEndpoint{}).Command(getServerURL))
	runsCmd.AddCommand((&endpoints.RunReportEndpoint{}).Command(getServerURL))

	// Settings as subcommand group
	settingsCmd.AddCommand((&endpoints.ListSettingsEndpoint{}).Command(getServerURL))
	settingsCmd.AddCommand((&endpoints.GetSettingEndpoint{}).Command(getServerURL))
	settingsCmd.AddCommand((&endpoints.UpdateSettingEndpoint{}).Command(getServerURL))
	settingsCmd.AddCommand((&endpoints.ResetSettingEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(documentsCmd)
	apiCmd.AddCommand(pagesCmd)
	apiCmd.AddCommand(runsCmd)
	apiCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(apiCmd)
}
