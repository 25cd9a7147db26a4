// Package engine implements the block consolidation and coverage
// core: reference deduplication, coverage matching, spatial merging,
// and redundant/unique classification, behind a per-key cached,
// single-flight service.
package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/blocklens/blocklens/internal/region"
)

// Engine computes derived structures over ingested regions. All state
// is scoped to the instance owned by the hosting service; a prior
// failure cannot corrupt later computations.
type Engine struct {
	logger *slog.Logger
	cache  *resultCache
}

// New creates an engine.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger: logger,
		cache:  newResultCache(),
	}
}

// PageRegions is the per-provider input for one page, already
// normalized to the unit square.
type PageRegions struct {
	DocumentID string
	Page       int
	ByProvider map[string][]region.Region
}

// Providers returns the sorted provider names carrying regions.
func (pr PageRegions) Providers() []string {
	return pr.providers()
}

func (pr PageRegions) providers() []string {
	names := make([]string, 0, len(pr.ByProvider))
	for name := range pr.ByProvider {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// flatten concatenates all providers' regions in sorted provider
// order. The dedupe sweep re-sorts internally, so this order only
// needs to be deterministic, not meaningful.
func (pr PageRegions) flatten() []region.Region {
	var all []region.Region
	for _, name := range pr.providers() {
		all = append(all, pr.ByProvider[name]...)
	}
	return all
}

// Reference builds (or returns the cached) canonical reference list
// for a page across the given providers.
func (e *Engine) Reference(pr PageRegions, p Params) ([]region.ReferenceRegion, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	key := e.key(pr, "reference", p.CacheKey())
	v, err := e.cache.do(key, func() (any, error) {
		refs := ComputeReference(pr.flatten(), p.DedupeThreshold)
		e.logger.Debug("computed reference set",
			"document", pr.DocumentID, "page", pr.Page,
			"providers", len(pr.ByProvider), "references", len(refs))
		return refs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]region.ReferenceRegion), nil
}

// Coverage scores one provider against the page's reference list
// (computed across all providers in pr, cached independently).
func (e *Engine) Coverage(pr PageRegions, provider string, p Params) (CoverageResult, error) {
	if err := p.Validate(); err != nil {
		return CoverageResult{}, err
	}
	if _, ok := pr.ByProvider[provider]; !ok {
		// A provider with no regions is still scoreable: empty input
		// yields zero coverage, not an error.
		e.logger.Debug("coverage requested for provider without regions",
			"document", pr.DocumentID, "page", pr.Page, "provider", provider)
	}

	refs, err := e.Reference(pr, p)
	if err != nil {
		return CoverageResult{}, err
	}

	key := e.key(pr, "coverage:"+provider, p.CacheKey())
	v, err := e.cache.do(key, func() (any, error) {
		res, err := Coverage(provider, pr.ByProvider[provider], refs, p.AcceptThreshold, p.MatchMode)
		if err != nil {
			return nil, err
		}
		res.Page = pr.Page
		return res, nil
	})
	if err != nil {
		return CoverageResult{}, err
	}
	return v.(CoverageResult), nil
}

// Merge groups the selected providers' combined regions for a page.
func (e *Engine) Merge(pr PageRegions, mode region.MergeMode, p Params) ([]region.MergeGroup, error) {
	if err := ValidateMergeMode(mode); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	key := e.key(pr, "merge:"+string(mode), p.CacheKey())
	v, err := e.cache.do(key, func() (any, error) {
		return Merge(pr.Page, pr.flatten(), mode, p)
	})
	if err != nil {
		return nil, err
	}
	return v.([]region.MergeGroup), nil
}

// Consolidate groups and classifies exactly one provider's regions.
func (e *Engine) Consolidate(pr PageRegions, provider string, strategy region.Strategy, p Params) (*region.ConsolidationResult, error) {
	if err := ValidateStrategy(strategy); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if _, ok := pr.ByProvider[provider]; !ok {
		return nil, fmt.Errorf("%w: consolidation requires regions for provider %q", ErrInvalidConfiguration, provider)
	}

	key := e.key(pr, "consolidate:"+provider+":"+string(strategy), p.CacheKey())
	v, err := e.cache.do(key, func() (any, error) {
		return Consolidate(pr.Page, provider, pr.ByProvider[provider], strategy, p)
	})
	if err != nil {
		return nil, err
	}
	return v.(*region.ConsolidationResult), nil
}

// Invalidate drops every cached result for a document. Called when a
// document's regions are re-ingested; parameter changes never need
// this because they produce new keys.
func (e *Engine) Invalidate(documentID string) {
	n := e.cache.invalidatePrefix(documentID + "|")
	if n > 0 {
		e.logger.Debug("invalidated cached results", "document", documentID, "entries", n)
	}
}

// key builds the cache key for one (document, page, operation,
// parameter-set, provider-set) combination.
func (e *Engine) key(pr PageRegions, op, params string) string {
	return fmt.Sprintf("%s|%d|%s|%s|%s",
		pr.DocumentID, pr.Page, op, params, strings.Join(pr.providers(), ","))
}
