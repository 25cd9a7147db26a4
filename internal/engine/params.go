package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/blocklens/blocklens/internal/region"
)

// ErrInvalidConfiguration is returned for unknown enum values or
// thresholds outside (0,1]. The whole operation fails fast; a wrong
// policy silently applied would be worse than an explicit failure.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// MatchMode selects the coverage matching algorithm.
type MatchMode string

const (
	MatchGreedy    MatchMode = "greedy"
	MatchBipartite MatchMode = "bipartite"
)

// ValidMatchMode reports whether m is a recognized match mode.
func ValidMatchMode(m MatchMode) bool {
	return m == MatchGreedy || m == MatchBipartite
}

// Params holds every tunable of the engine. The clustering tolerances
// are deliberately named configuration rather than constants; the
// defaults are sensible starting points, not load-bearing values.
type Params struct {
	// DedupeThreshold is the IoU at or above which two regions are
	// considered the same reference region. In (0,1].
	DedupeThreshold float64 `json:"dedupe_threshold"`

	// AcceptThreshold is the minimum IoU for a provider region to
	// match a reference region during coverage scoring. In (0,1].
	AcceptThreshold float64 `json:"accept_threshold"`

	// MatchMode selects greedy or optimal bipartite coverage matching.
	MatchMode MatchMode `json:"match_mode"`

	// MinRangeOverlap is the minimum cross-axis range overlap for two
	// regions to stack in vertical/horizontal merge, as a fraction of
	// the narrower region's extent. 0 means any positive overlap.
	MinRangeOverlap float64 `json:"min_range_overlap"`

	// GapRatio bounds the along-axis gap between stacked regions as a
	// fraction of the smaller region's extent on that axis.
	GapRatio float64 `json:"gap_ratio"`

	// AlignTolerance is the maximum left-edge or center misalignment
	// for paragraph clustering, in unit-square coordinates.
	AlignTolerance float64 `json:"align_tolerance"`

	// CenterTolerance is the maximum horizontal-center distance for
	// the vertical_centers consolidation strategy.
	CenterTolerance float64 `json:"center_tolerance"`

	// RedundantAreaTolerance is the relative slack when deciding that
	// a region's area is fully covered by its peers.
	RedundantAreaTolerance float64 `json:"redundant_area_tolerance"`
}

// DefaultParams returns the engine defaults.
func DefaultParams() Params {
	return Params{
		DedupeThreshold:        0.9,
		AcceptThreshold:        0.5,
		MatchMode:              MatchBipartite,
		MinRangeOverlap:        0,
		GapRatio:               0.5,
		AlignTolerance:         0.02,
		CenterTolerance:        0.05,
		RedundantAreaTolerance: 1e-3,
	}
}

// Validate checks every field. Unknown enum values and out-of-range
// thresholds are rejected, never silently defaulted.
func (p Params) Validate() error {
	if p.DedupeThreshold <= 0 || p.DedupeThreshold > 1 {
		return fmt.Errorf("%w: dedupe_threshold %g outside (0,1]", ErrInvalidConfiguration, p.DedupeThreshold)
	}
	if p.AcceptThreshold <= 0 || p.AcceptThreshold > 1 {
		return fmt.Errorf("%w: accept_threshold %g outside (0,1]", ErrInvalidConfiguration, p.AcceptThreshold)
	}
	if !ValidMatchMode(p.MatchMode) {
		return fmt.Errorf("%w: unknown match_mode %q", ErrInvalidConfiguration, p.MatchMode)
	}
	if p.MinRangeOverlap < 0 || p.MinRangeOverlap > 1 {
		return fmt.Errorf("%w: min_range_overlap %g outside [0,1]", ErrInvalidConfiguration, p.MinRangeOverlap)
	}
	if p.GapRatio < 0 {
		return fmt.Errorf("%w: gap_ratio %g negative", ErrInvalidConfiguration, p.GapRatio)
	}
	if p.AlignTolerance < 0 || p.CenterTolerance < 0 {
		return fmt.Errorf("%w: negative alignment tolerance", ErrInvalidConfiguration)
	}
	if p.RedundantAreaTolerance < 0 || p.RedundantAreaTolerance >= 1 {
		return fmt.Errorf("%w: redundant_area_tolerance %g outside [0,1)", ErrInvalidConfiguration, p.RedundantAreaTolerance)
	}
	return nil
}

// ValidateMergeMode rejects unknown merge modes.
func ValidateMergeMode(m region.MergeMode) error {
	if !region.ValidMergeMode(m) {
		return fmt.Errorf("%w: unknown merge mode %q", ErrInvalidConfiguration, m)
	}
	return nil
}

// ValidateStrategy rejects unknown consolidation strategies.
func ValidateStrategy(s region.Strategy) error {
	if !region.ValidStrategy(s) {
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfiguration, s)
	}
	return nil
}

// CacheKey returns a canonical string for the parameter set, used as
// part of the computation cache key. Two Params values with identical
// fields always produce identical keys.
func (p Params) CacheKey() string {
	var b strings.Builder
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	b.WriteString("dt=")
	b.WriteString(f(p.DedupeThreshold))
	b.WriteString(",at=")
	b.WriteString(f(p.AcceptThreshold))
	b.WriteString(",mm=")
	b.WriteString(string(p.MatchMode))
	b.WriteString(",ro=")
	b.WriteString(f(p.MinRangeOverlap))
	b.WriteString(",gr=")
	b.WriteString(f(p.GapRatio))
	b.WriteString(",al=")
	b.WriteString(f(p.AlignTolerance))
	b.WriteString(",ct=")
	b.WriteString(f(p.CenterTolerance))
	b.WriteString(",rt=")
	b.WriteString(f(p.RedundantAreaTolerance))
	return b.String()
}
