// Package region defines the canonical text-region data model shared by
// every extraction provider. Provider-specific adapters conform their raw
// output to this shape before it reaches the engine; nothing downstream
// knows which provider produced a region beyond its Source tag.
package region

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/blocklens/blocklens/internal/geometry"
)

// ErrInvalidGeometry is returned when page dimensions are non-positive
// or a region has negative width/height.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Kind classifies the granularity of a region.
type Kind string

const (
	KindBlock     Kind = "block"
	KindWord      Kind = "word"
	KindCharacter Kind = "character"
	KindMerged    Kind = "merged"
)

// ValidKind reports whether k is a recognized region kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindBlock, KindWord, KindCharacter, KindMerged:
		return true
	}
	return false
}

// Region is a single detected text area reported by one extraction
// provider. Coordinates are page-relative (unit square). Regions are
// immutable after ingestion; only the ingest step assigns ID and Order.
type Region struct {
	ID         string        `json:"id"`
	Page       int           `json:"page"`
	Source     string        `json:"source"`
	Kind       Kind          `json:"kind"`
	BBox       geometry.Rect `json:"bbox"`
	Confidence *float64      `json:"confidence,omitempty"`
	Text       string        `json:"text,omitempty"`
	ParentID   string        `json:"parent_id,omitempty"`
	ChildrenIDs []string     `json:"children_ids,omitempty"`
	Order      int           `json:"order"`
}

// Degenerate reports whether the region must be excluded from
// geometric operations.
func (r Region) Degenerate() bool {
	return !r.BBox.Valid()
}

// CheckBounds verifies the unit-square invariant: x, y in [0,1] and
// x+w, y+h within 1 plus a small rounding tolerance.
func (r Region) CheckBounds() error {
	b := r.BBox
	if b.W < 0 || b.H < 0 {
		return fmt.Errorf("%w: negative dimensions %gx%g", ErrInvalidGeometry, b.W, b.H)
	}
	if b.X < 0 || b.Y < 0 || b.X > 1 || b.Y > 1 {
		return fmt.Errorf("%w: origin (%g, %g) outside unit square", ErrInvalidGeometry, b.X, b.Y)
	}
	if b.Right() > 1+geometry.Epsilon || b.Bottom() > 1+geometry.Epsilon {
		return fmt.Errorf("%w: extent (%g, %g) outside unit square", ErrInvalidGeometry, b.Right(), b.Bottom())
	}
	return nil
}

// ReferenceRegion is a deduplicated, provider-agnostic canonical
// region: the union baseline used for coverage scoring. Sources is
// kept sorted; MemberIoUs records each contributing provider's best
// IoU against the reference bbox.
type ReferenceRegion struct {
	ID         string             `json:"id"`
	Page       int                `json:"page"`
	BBox       geometry.Rect      `json:"bbox"`
	Sources    []string           `json:"sources"`
	MemberIoUs map[string]float64 `json:"member_ious,omitempty"`
}

// HasSource reports whether the given provider contributed to this
// reference region.
func (rr ReferenceRegion) HasSource(provider string) bool {
	for _, s := range rr.Sources {
		if s == provider {
			return true
		}
	}
	return false
}

// MergeMode selects the spatial policy of the merge engine.
type MergeMode string

const (
	MergeVertical   MergeMode = "vertical"
	MergeHorizontal MergeMode = "horizontal"
	MergeParagraph  MergeMode = "paragraph"
)

// ValidMergeMode reports whether m is a recognized merge mode.
func ValidMergeMode(m MergeMode) bool {
	switch m {
	case MergeVertical, MergeHorizontal, MergeParagraph:
		return true
	}
	return false
}

// MergeGroup is a user-directed combination of regions into one
// logical block. BBox is exactly the minimal rectangle covering all
// members; ID is a deterministic function of (page, mode, members).
type MergeGroup struct {
	ID      string        `json:"id"`
	Source  string        `json:"source"`
	Mode    MergeMode     `json:"mode"`
	Page    int           `json:"page"`
	BBox    geometry.Rect `json:"bbox"`
	Members []string      `json:"members"`
}

// Strategy selects the consolidation grouping rule.
type Strategy string

const (
	StrategyOverlap         Strategy = "overlap"
	StrategyVerticalCenters Strategy = "vertical_centers"
	StrategyParagraph       Strategy = "paragraph"
)

// ValidStrategy reports whether s is a recognized consolidation strategy.
func ValidStrategy(s Strategy) bool {
	switch s {
	case StrategyOverlap, StrategyVerticalCenters, StrategyParagraph:
		return true
	}
	return false
}

// AnnotatedRegion is a region classified against the peers in its
// consolidation group. For groups of size >= 2 exactly one of
// Redundant/UniqueExtra is true; singletons have both false.
type AnnotatedRegion struct {
	Region
	Redundant   bool `json:"redundant"`
	UniqueExtra bool `json:"unique_extra"`
}

// LayoutGroup records a consolidation group's bounding extent for
// overlay rendering by the UI.
type LayoutGroup struct {
	ID   string        `json:"id"`
	Type string        `json:"type"`
	BBox geometry.Rect `json:"bbox"`
}

// ConsolidationResult is the output of consolidating one provider's
// regions under one strategy.
type ConsolidationResult struct {
	Source       string            `json:"source"`
	Strategy     Strategy          `json:"strategy"`
	Boxes        []AnnotatedRegion `json:"boxes"`
	LayoutGroups []LayoutGroup     `json:"layout_groups"`
}

// Normalize maps a region with absolute coordinates (pixels or
// document units) into the unit square using the page's pixel
// dimensions as the scale reference. The input region is not mutated.
func Normalize(r Region, pageW, pageH float64) (Region, error) {
	if pageW <= 0 || pageH <= 0 {
		return Region{}, fmt.Errorf("%w: page dimensions %gx%g", ErrInvalidGeometry, pageW, pageH)
	}
	out := r
	out.BBox = geometry.Rect{
		X: r.BBox.X / pageW,
		Y: r.BBox.Y / pageH,
		W: r.BBox.W / pageW,
		H: r.BBox.H / pageH,
	}
	return out, nil
}

// NormalizeAll normalizes a batch of regions, dropping degenerate ones.
// Dropped regions are reported in the second return value so callers
// can log them. Normalized regions must land inside the unit square;
// a region extending past the page edge fails the whole batch.
func NormalizeAll(regions []Region, pageW, pageH float64) ([]Region, []Region, error) {
	if pageW <= 0 || pageH <= 0 {
		return nil, nil, fmt.Errorf("%w: page dimensions %gx%g", ErrInvalidGeometry, pageW, pageH)
	}
	out := make([]Region, 0, len(regions))
	var dropped []Region
	for _, r := range regions {
		n, err := Normalize(r, pageW, pageH)
		if err != nil {
			return nil, nil, err
		}
		if err := n.CheckBounds(); err != nil {
			return nil, nil, err
		}
		if n.Degenerate() {
			dropped = append(dropped, r)
			continue
		}
		out = append(out, n)
	}
	return out, dropped, nil
}

// Ingest finalizes a batch of raw regions for storage: stamps source
// and page, assigns a uuid where the provider supplied no id, and
// numbers the regions with a stable display index in input order.
func Ingest(regions []Region, source string, page int) []Region {
	out := make([]Region, len(regions))
	for i, r := range regions {
		r.Source = source
		r.Page = page
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if r.Kind == "" {
			r.Kind = KindBlock
		}
		r.Order = i
		out[i] = r
	}
	return out
}
