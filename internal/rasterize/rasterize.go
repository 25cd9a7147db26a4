// Package rasterize renders document pages to PNG images using
// pdftoppm (poppler-utils).
package rasterize

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Renderer renders PDF pages to page_NNNN.png files.
type Renderer struct {
	dpi    int
	logger *slog.Logger
}

// New creates a renderer. A non-positive dpi falls back to 150.
func New(dpi int, logger *slog.Logger) *Renderer {
	if dpi <= 0 {
		dpi = 150
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{dpi: dpi, logger: logger}
}

// PageCount returns the number of pages in a PDF.
func PageCount(pdfPath string) (int, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	count, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return count, nil
}

// RenderAll renders every page of a PDF into outDir, numbering output
// files sequentially starting at pageOffset+1. Pages render
// concurrently up to maxWorkers. Returns the number of pages rendered.
func (r *Renderer) RenderAll(ctx context.Context, pdfPath, outDir string, pageOffset, maxWorkers int) (int, error) {
	pageCount, err := PageCount(pdfPath)
	if err != nil {
		return 0, err
	}
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	type result struct {
		pageNum int
		err     error
	}

	results := make(chan result, pageCount)
	sem := make(chan struct{}, maxWorkers)

	for page := 1; page <= pageCount; page++ {
		sem <- struct{}{} // acquire
		go func(pageInPDF int) {
			defer func() { <-sem }() // release

			outputPageNum := pageOffset + pageInPDF
			err := r.renderPage(ctx, pdfPath, outDir, pageInPDF, outputPageNum)
			results <- result{pageNum: pageInPDF, err: err}
		}(page)
	}

	// Collect results
	for i := 0; i < pageCount; i++ {
		res := <-results
		if res.err != nil {
			return 0, fmt.Errorf("failed to render page %d: %w", res.pageNum, res.err)
		}
	}

	return pageCount, nil
}

// renderPage renders a single page. pdftoppm occasionally fails under
// memory pressure, so the invocation retries a few times.
func (r *Renderer) renderPage(ctx context.Context, pdfPath, outDir string, pageInPDF, outputPageNum int) error {
	return retry.Do(
		func() error {
			return r.renderOnce(ctx, pdfPath, outDir, pageInPDF, outputPageNum)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
	)
}

func (r *Renderer) renderOnce(ctx context.Context, pdfPath, outDir string, pageInPDF, outputPageNum int) error {
	// Create temp directory for output
	tmpDir, err := os.MkdirTemp("", "blocklens-page-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// Output prefix for pdftoppm
	outputPrefix := filepath.Join(tmpDir, "page")

	// Run pdftoppm to render the page
	// -png: output PNG format
	// -f N: first page to render
	// -l N: last page to render
	// -r N: resolution in DPI
	// -singlefile: don't add page number suffix
	pageStr := fmt.Sprintf("%d", pageInPDF)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprintf("%d", r.dpi),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	// pdftoppm with -singlefile creates: <prefix>.png
	srcPath := outputPrefix + ".png"
	if _, err := os.Stat(srcPath); err != nil {
		return fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}

	// Read the rendered image
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("failed to read rendered image: %w", err)
	}

	// Write to destination with sequential naming
	dstPath := filepath.Join(outDir, fmt.Sprintf("page_%04d.png", outputPageNum))
	if err := os.WriteFile(dstPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write page image: %w", err)
	}

	return nil
}

// ImageSize returns the pixel dimensions of a rendered PNG.
func ImageSize(path string) (width, height float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image header: %w", err)
	}
	return float64(cfg.Width), float64(cfg.Height), nil
}
