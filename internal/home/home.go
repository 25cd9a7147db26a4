package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the blocklens home directory.
	DefaultDirName = ".blocklens"

	// DataDirName is the subdirectory for document and region data.
	DataDirName = "data"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the blocklens home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.blocklens).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// DataPath returns the path to the data directory.
func (d *Dir) DataPath() string {
	return filepath.Join(d.path, DataDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	// Create data directory (this also creates the parent)
	if err := os.MkdirAll(d.DataPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// PageImagesDir returns the directory for rendered page images of a document.
func (d *Dir) PageImagesDir(docID string) string {
	return filepath.Join(d.path, "page_images", docID)
}

// PageImagePath returns the path to a specific rendered page.
// Page numbers are 1-indexed.
func (d *Dir) PageImagePath(docID string, pageNum int) string {
	return filepath.Join(d.PageImagesDir(docID), fmt.Sprintf("page_%04d.png", pageNum))
}

// PageImagePaths returns paths for all pages of a document.
func (d *Dir) PageImagePaths(docID string, pageCount int) []string {
	paths := make([]string, pageCount)
	for i := 1; i <= pageCount; i++ {
		paths[i-1] = d.PageImagePath(docID, i)
	}
	return paths
}

// EnsurePageImagesDir creates the page images directory for a document.
func (d *Dir) EnsurePageImagesDir(docID string) error {
	return os.MkdirAll(d.PageImagesDir(docID), 0o755)
}

// OriginalsDir returns the directory for original uploaded files of a document.
func (d *Dir) OriginalsDir(docID string) string {
	return filepath.Join(d.PageImagesDir(docID), "originals")
}

// EnsureOriginalsDir creates the originals directory for a document.
func (d *Dir) EnsureOriginalsDir(docID string) error {
	return os.MkdirAll(d.OriginalsDir(docID), 0o755)
}

// RegionsDir returns the directory holding per-provider region files
// for a document.
func (d *Dir) RegionsDir(docID string) string {
	return filepath.Join(d.DataPath(), "regions", docID)
}

// EnsureRegionsDir creates the regions directory for a document.
func (d *Dir) EnsureRegionsDir(docID string) error {
	return os.MkdirAll(d.RegionsDir(docID), 0o755)
}

// RunsDir returns the directory for benchmark run state and artifacts.
func (d *Dir) RunsDir() string {
	return filepath.Join(d.path, "runs")
}

// RunDir returns the artifact directory for a specific run.
func (d *Dir) RunDir(runID string) string {
	return filepath.Join(d.RunsDir(), runID)
}

// EnsureRunDir creates the artifact directory for a run.
func (d *Dir) EnsureRunDir(runID string) error {
	return os.MkdirAll(d.RunDir(runID), 0o755)
}
