// Package store persists documents and extracted regions as JSON
// files under the blocklens home directory. A single index file holds
// document metadata; per-provider region files live in one directory
// per document.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/blocklens/blocklens/internal/home"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Document holds metadata for one ingested document.
type Document struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	OriginalPath string    `json:"original_path"`
	PageCount    int       `json:"page_count"`
	CreatedAt    time.Time `json:"created_at"`

	// PageSizes maps 1-indexed page numbers to rendered pixel
	// dimensions, recorded so region payloads in pixel space can be
	// normalized later.
	PageSizes map[int]PageSize `json:"page_sizes,omitempty"`
}

// PageSize is the rendered pixel size of one page.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Store is a file-backed document and region store. All writes go
// through a temp file and rename.
type Store struct {
	mu     sync.RWMutex
	home   *home.Dir
	logger *slog.Logger
}

// New creates a store rooted at the given home directory.
func New(h *home.Dir, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}
	return &Store{home: h, logger: logger}, nil
}

func (s *Store) indexPath() string {
	return filepath.Join(s.home.DataPath(), "documents.json")
}

// readIndex loads the document index. Caller holds the lock.
func (s *Store) readIndex() (map[string]Document, error) {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Document{}, nil
		}
		return nil, fmt.Errorf("failed to read document index: %w", err)
	}
	docs := map[string]Document{}
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse document index: %w", err)
	}
	return docs, nil
}

// writeIndex stores the document index. Caller holds the lock.
func (s *Store) writeIndex(docs map[string]Document) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document index: %w", err)
	}
	return atomicWrite(s.indexPath(), data)
}

// atomicWrite writes data to path via a temp file and rename.
func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

// SaveDocument creates or replaces a document record.
func (s *Store) SaveDocument(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.readIndex()
	if err != nil {
		return err
	}
	docs[doc.ID] = doc
	if err := s.writeIndex(docs); err != nil {
		return err
	}
	s.logger.Debug("saved document", "id", doc.ID, "pages", doc.PageCount)
	return nil
}

// GetDocument returns a document by id.
func (s *Store) GetDocument(id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs, err := s.readIndex()
	if err != nil {
		return Document{}, err
	}
	doc, ok := docs[id]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return doc, nil
}

// ListDocuments returns all documents, newest first.
func (s *Store) ListDocuments() ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteDocument removes a document record and its stored regions.
func (s *Store) DeleteDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.readIndex()
	if err != nil {
		return err
	}
	if _, ok := docs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(docs, id)
	if err := s.writeIndex(docs); err != nil {
		return err
	}
	if err := os.RemoveAll(s.home.RegionsDir(id)); err != nil {
		return fmt.Errorf("failed to remove regions for %s: %w", id, err)
	}
	s.logger.Debug("deleted document", "id", id)
	return nil
}
