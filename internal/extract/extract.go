// Package extract runs extraction engines against rendered document
// pages and returns their text regions, normalized to the unit
// square.
package extract

import (
	"context"

	"github.com/blocklens/blocklens/internal/region"
)

// Extractor produces text regions from one rendered page image.
// Implementations return regions already normalized to [0,1]
// coordinates.
type Extractor interface {
	// Name returns the engine identifier used as the region source.
	Name() string

	// ExtractPage extracts regions from the image at imagePath,
	// stamping them with the given 1-indexed page number.
	ExtractPage(ctx context.Context, imagePath string, page int) ([]region.Region, error)
}
