package extract

import (
	"context"

	"github.com/blocklens/blocklens/internal/geometry"
	"github.com/blocklens/blocklens/internal/region"
)

// MockExtractor returns a fixed set of regions for every page. Used in
// tests and as a stand-in when no real engine is configured.
type MockExtractor struct {
	name    string
	regions []region.Region
	Err     error // Returned from ExtractPage when set
	Calls   int
}

// NewMockExtractor creates a mock extractor. When regions is nil a
// small default layout is used.
func NewMockExtractor(name string, regions []region.Region) *MockExtractor {
	if name == "" {
		name = "mock"
	}
	if regions == nil {
		regions = []region.Region{
			{Kind: region.KindBlock, BBox: geometry.Rect{X: 0.1, Y: 0.1, W: 0.8, H: 0.1}, Text: "heading"},
			{Kind: region.KindBlock, BBox: geometry.Rect{X: 0.1, Y: 0.25, W: 0.8, H: 0.4}, Text: "body"},
		}
	}
	return &MockExtractor{name: name, regions: regions}
}

// Name returns the engine identifier.
func (e *MockExtractor) Name() string {
	return e.name
}

// ExtractPage returns the configured regions stamped for the page.
func (e *MockExtractor) ExtractPage(_ context.Context, _ string, page int) ([]region.Region, error) {
	e.Calls++
	if e.Err != nil {
		return nil, e.Err
	}
	return region.Ingest(e.regions, e.name, page), nil
}
