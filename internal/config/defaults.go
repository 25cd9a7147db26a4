package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// DefaultEntries returns the default runtime settings.
// These are seeded into the settings store on first run.
func DefaultEntries() []Entry {
	return []Entry{
		// ===================
		// Comparison engine
		// ===================
		{
			Key:         "engine.dedupe_threshold",
			Value:       0.9,
			Description: "IoU above which two boxes count as the same reference block",
		},
		{
			Key:         "engine.accept_threshold",
			Value:       0.5,
			Description: "Minimum IoU for a box to match a reference block",
		},
		{
			Key:         "engine.match_mode",
			Value:       "bipartite",
			Description: "Coverage matching mode: greedy or bipartite",
		},
		{
			Key:         "engine.gap_ratio",
			Value:       0.5,
			Description: "Maximum vertical gap, as a fraction of the smaller box height, for merging",
		},
		{
			Key:         "engine.align_tolerance",
			Value:       0.02,
			Description: "Left-edge or center alignment tolerance for paragraph merging",
		},
		{
			Key:         "engine.center_tolerance",
			Value:       0.05,
			Description: "Center-x distance for the vertical_centers consolidation strategy",
		},
		{
			Key:         "engine.redundant_area_tolerance",
			Value:       1e-3,
			Description: "Relative area slack when deciding a box is fully covered by its peers",
		},

		// ===================
		// Extractor defaults
		// ===================
		{
			Key:         "extractors.openai.type",
			Value:       "openai",
			Description: "Extractor type for the OpenAI vision engine",
		},
		{
			Key:         "extractors.openai.model",
			Value:       "gpt-4o-mini",
			Description: "Default model for the OpenAI vision engine",
		},
		{
			Key:         "extractors.openai.api_key",
			Value:       "${OPENAI_API_KEY}",
			Description: "OpenAI API key (uses environment variable)",
		},
		{
			Key:         "extractors.openai.rate_limit",
			Value:       2.0,
			Description: "Rate limit in requests per second for the OpenAI engine",
		},
		{
			Key:         "extractors.openai.enabled",
			Value:       true,
			Description: "Whether the OpenAI extractor is enabled",
		},
		{
			Key:         "extractors.tesseract.type",
			Value:       "command",
			Description: "Extractor type for the tesseract command engine",
		},
		{
			Key:         "extractors.tesseract.command",
			Value:       "tesseract",
			Description: "Executable for the tesseract command engine",
		},
		{
			Key:         "extractors.tesseract.enabled",
			Value:       true,
			Description: "Whether the tesseract extractor is enabled",
		},

		// ===================
		// Run defaults
		// ===================
		{
			Key:         "defaults.extractors",
			Value:       []string{"openai", "tesseract"},
			Description: "Ordered list of extractors used by benchmark runs",
		},
		{
			Key:         "defaults.baseline",
			Value:       "tesseract",
			Description: "Extractor treated as the baseline in run reports",
		},
		{
			Key:         "defaults.max_workers",
			Value:       4,
			Description: "Maximum concurrent page extractions per run",
		},
		{
			Key:         "defaults.dpi",
			Value:       150,
			Description: "Resolution for rendering document pages to images",
		},
	}
}

// SeedDefaults seeds default configuration entries into the store.
// This is idempotent - existing entries are not overwritten.
func SeedDefaults(ctx context.Context, store Store, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultEntries()
	seeded := 0
	skipped := 0

	for _, entry := range defaults {
		// Check if key already exists
		existing, err := store.Get(ctx, entry.Key)
		if err != nil {
			return fmt.Errorf("failed to check key %q: %w", entry.Key, err)
		}

		if existing != nil {
			skipped++
			continue
		}

		// Create the entry
		if err := store.Set(ctx, entry.Key, entry.Value, entry.Description); err != nil {
			return fmt.Errorf("failed to seed key %q: %w", entry.Key, err)
		}
		seeded++
	}

	if seeded > 0 {
		logger.Info("seeded default config entries", "seeded", seeded, "skipped", skipped)
	}
	return nil
}

// GetDefault returns the default value for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// ResetToDefault resets a config key to its default value.
// Returns ErrNoDefault if no default exists for the key.
func ResetToDefault(ctx context.Context, store Store, key string) error {
	def := GetDefault(key)
	if def == nil {
		return fmt.Errorf("%w for key %q", ErrNoDefault, key)
	}
	return store.Set(ctx, key, def.Value, def.Description)
}
