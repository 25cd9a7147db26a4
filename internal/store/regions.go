package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blocklens/blocklens/internal/engine"
	"github.com/blocklens/blocklens/internal/region"
)

func (s *Store) regionsPath(docID, provider string) string {
	return filepath.Join(s.home.RegionsDir(docID), provider+".json")
}

// SaveRegions replaces the stored regions for one provider of a
// document. Regions are expected to be normalized already.
func (s *Store) SaveRegions(docID, provider string, regions []region.Region) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.readIndex()
	if err != nil {
		return err
	}
	if _, ok := docs[docID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, docID)
	}

	if err := s.home.EnsureRegionsDir(docID); err != nil {
		return fmt.Errorf("failed to create regions directory: %w", err)
	}
	data, err := json.MarshalIndent(regions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal regions: %w", err)
	}
	if err := atomicWrite(s.regionsPath(docID, provider), data); err != nil {
		return err
	}
	s.logger.Debug("saved regions", "document", docID, "provider", provider, "count", len(regions))
	return nil
}

// GetRegions returns one provider's regions for a document. A
// provider with no stored file yields an empty slice.
func (s *Store) GetRegions(docID, provider string) ([]region.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readRegions(docID, provider)
}

func (s *Store) readRegions(docID, provider string) ([]region.Region, error) {
	data, err := os.ReadFile(s.regionsPath(docID, provider))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read regions: %w", err)
	}
	var regions []region.Region
	if err := json.Unmarshal(data, &regions); err != nil {
		return nil, fmt.Errorf("failed to parse regions for %s/%s: %w", docID, provider, err)
	}
	return regions, nil
}

// Providers returns the providers with stored regions for a document,
// sorted by name.
func (s *Store) Providers(docID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.home.RegionsDir(docID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list regions directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// PageRegions assembles the engine input for one page: every
// provider's regions on that page, keyed by provider. Restricting to
// a provider subset is done by the caller via the providers argument;
// nil means all stored providers.
func (s *Store) PageRegions(docID string, page int, providers []string) (engine.PageRegions, error) {
	pr := engine.PageRegions{
		DocumentID: docID,
		Page:       page,
		ByProvider: map[string][]region.Region{},
	}

	if providers == nil {
		var err error
		providers, err = s.Providers(docID)
		if err != nil {
			return pr, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, name := range providers {
		all, err := s.readRegions(docID, name)
		if err != nil {
			return pr, err
		}
		var onPage []region.Region
		for _, r := range all {
			if r.Page == page {
				onPage = append(onPage, r)
			}
		}
		pr.ByProvider[name] = onPage
	}
	return pr, nil
}
