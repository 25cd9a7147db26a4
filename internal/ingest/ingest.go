// Package ingest handles document ingestion from PDF files.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blocklens/blocklens/internal/home"
	"github.com/blocklens/blocklens/internal/rasterize"
	"github.com/blocklens/blocklens/internal/store"
)

// Request contains the parameters for ingesting a document.
type Request struct {
	PDFPaths   []string     // PDF file paths (will be sorted by numeric suffix)
	Name       string       // Document name (optional, derived from filename if empty)
	DPI        int          // Render resolution
	MaxWorkers int          // Concurrent page renders
	Logger     *slog.Logger // Optional logger for progress updates
}

// Result contains the result of a successful ingest operation.
type Result struct {
	DocumentID string
	Name       string
	PageCount  int
}

// Ingest renders pages from PDFs, records their pixel sizes, and
// creates a document record in the store.
func Ingest(ctx context.Context, st *store.Store, homeDir *home.Dir, req Request) (*Result, error) {
	log := req.Logger
	if log == nil {
		log = slog.Default()
	}

	if len(req.PDFPaths) == 0 {
		return nil, fmt.Errorf("no PDF paths provided")
	}

	// Validate all PDF paths exist
	for _, p := range req.PDFPaths {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("PDF not found: %s", p)
		}
	}

	// Sort PDFs by numeric suffix (e.g., report-1.pdf, report-2.pdf)
	sortedPaths := sortPDFsByNumber(req.PDFPaths)
	log.Info("starting ingest", "pdfs", len(sortedPaths), "name", req.Name)

	// Derive name from first PDF filename if not provided
	name := req.Name
	if name == "" {
		name = deriveName(sortedPaths[0])
	}

	docID := uuid.New().String()

	if err := homeDir.EnsurePageImagesDir(docID); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	outDir := homeDir.PageImagesDir(docID)

	// Render pages from all PDFs
	renderer := rasterize.New(req.DPI, log)
	pageCount := 0
	for i, pdfPath := range sortedPaths {
		log.Debug("rendering PDF", "file", filepath.Base(pdfPath), "part", i+1, "of", len(sortedPaths))
		count, err := renderer.RenderAll(ctx, pdfPath, outDir, pageCount, req.MaxWorkers)
		if err != nil {
			// Clean up on failure
			os.RemoveAll(outDir)
			return nil, fmt.Errorf("failed to render %s: %w", pdfPath, err)
		}
		log.Debug("rendered pages", "count", count, "total", pageCount+count)
		pageCount += count
	}

	if pageCount == 0 {
		os.RemoveAll(outDir)
		return nil, fmt.Errorf("no pages rendered from PDFs")
	}

	// Keep the originals alongside the rendered pages
	if err := homeDir.EnsureOriginalsDir(docID); err != nil {
		os.RemoveAll(outDir)
		return nil, fmt.Errorf("failed to create originals directory: %w", err)
	}
	for _, pdfPath := range sortedPaths {
		dst := filepath.Join(homeDir.OriginalsDir(docID), filepath.Base(pdfPath))
		if err := copyFile(pdfPath, dst); err != nil {
			os.RemoveAll(outDir)
			return nil, fmt.Errorf("failed to copy original: %w", err)
		}
	}

	// Record rendered pixel sizes so pixel-space region payloads can
	// be normalized against them later.
	sizes := make(map[int]store.PageSize, pageCount)
	for page := 1; page <= pageCount; page++ {
		w, h, err := rasterize.ImageSize(homeDir.PageImagePath(docID, page))
		if err != nil {
			os.RemoveAll(outDir)
			return nil, fmt.Errorf("failed to measure page %d: %w", page, err)
		}
		sizes[page] = store.PageSize{Width: w, Height: h}
	}

	doc := store.Document{
		ID:           docID,
		Name:         name,
		OriginalPath: homeDir.OriginalsDir(docID),
		PageCount:    pageCount,
		CreatedAt:    time.Now().UTC(),
		PageSizes:    sizes,
	}
	if err := st.SaveDocument(doc); err != nil {
		os.RemoveAll(outDir)
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	log.Info("ingest complete", "document_id", docID, "pages", pageCount)

	return &Result{
		DocumentID: docID,
		Name:       name,
		PageCount:  pageCount,
	}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// sortPDFsByNumber sorts PDF paths by their numeric suffix.
// e.g., ["scan-2.pdf", "scan-1.pdf", "scan-10.pdf"] -> ["scan-1.pdf", "scan-2.pdf", "scan-10.pdf"]
func sortPDFsByNumber(paths []string) []string {
	sorted := make([]string, len(paths))
	copy(sorted, paths)

	re := regexp.MustCompile(`-(\d+)\.pdf$`)

	sort.Slice(sorted, func(i, j int) bool {
		mi := re.FindStringSubmatch(sorted[i])
		mj := re.FindStringSubmatch(sorted[j])

		// If both have numbers, sort numerically
		if len(mi) > 1 && len(mj) > 1 {
			ni, _ := strconv.Atoi(mi[1])
			nj, _ := strconv.Atoi(mj[1])
			return ni < nj
		}

		// Files without numbers come first
		if len(mi) > 1 {
			return false
		}
		if len(mj) > 1 {
			return true
		}

		// Both without numbers: alphabetical
		return sorted[i] < sorted[j]
	})

	return sorted
}

// deriveName extracts a document name from a PDF filename.
// e.g., "quarterly-report.pdf" -> "quarterly-report"
// e.g., "scan-1.pdf" -> "scan"
func deriveName(pdfPath string) string {
	base := filepath.Base(pdfPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	// Remove numeric suffix like "-1", "-2", etc.
	re := regexp.MustCompile(`-\d+$`)
	name = re.ReplaceAllString(name, "")

	return name
}
