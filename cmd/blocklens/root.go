package main

import (
	"github.com/spf13/cobra"

	"github.com/blocklens/blocklens/internal/api"
	"github.com/blocklens/blocklens/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "blocklens",
	Short: "Block consolidation and coverage engine for document extraction",
	Long: `Blocklens compares the text regions that different extraction engines
report for the same document pages.

It renders PDFs to page images, collects each engine's regions,
deduplicates them into a consolidated reference, and scores every
engine's coverage against that reference. Runs produce per-document
reports with weighted and unweighted coverage per provider.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.blocklens/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "blocklens home directory (default: ~/.blocklens)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
