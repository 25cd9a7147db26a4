package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/blocklens/blocklens/internal/api"
	"github.com/blocklens/blocklens/internal/config"
	"github.com/blocklens/blocklens/internal/home"
	"github.com/blocklens/blocklens/internal/ingest"
	"github.com/blocklens/blocklens/internal/store"
)

var (
	ingestName    string
	ingestDPI     int
	ingestWorkers int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <pdf> [pdf...]",
	Short: "Ingest PDFs into the local store",
	Long: `Ingest renders PDF pages to PNG images and registers the document
in the local store, without a running server.

Multi-part PDFs named with numeric suffixes (book_1.pdf, book_2.pdf)
are stitched into one document in order.

Examples:
  blocklens ingest paper.pdf
  blocklens ingest --name "Scanned Book" scan_1.pdf scan_2.pdf
  blocklens ingest --dpi 300 paper.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		st, err := store.New(h, logger)
		if err != nil {
			return err
		}

		dpi, workers := ingestDPI, ingestWorkers
		if cfgMgr, err := config.NewManager(cfgFile); err == nil {
			defaults := cfgMgr.Get().Defaults
			if dpi == 0 {
				dpi = defaults.DPI
			}
			if workers == 0 {
				workers = defaults.MaxWorkers
			}
		}

		result, err := ingest.Ingest(cmd.Context(), st, h, ingest.Request{
			PDFPaths:   args,
			Name:       ingestName,
			DPI:        dpi,
			MaxWorkers: workers,
			Logger:     logger,
		})
		if err != nil {
			return err
		}
		return api.Output(result)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "Document name (default: derived from filename)")
	ingestCmd.Flags().IntVar(&ingestDPI, "dpi", 0, "Render resolution (default: from config)")
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 0, "Concurrent page renders (default: from config)")

	rootCmd.AddCommand(ingestCmd)
}
