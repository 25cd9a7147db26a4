package config

import "github.com/blocklens/blocklens/internal/engine"

// Config holds blocklens configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Extractors map[string]ExtractorCfg `mapstructure:"extractors" yaml:"extractors"`
	Engine     EngineCfg               `mapstructure:"engine" yaml:"engine"`
	Defaults   DefaultsCfg             `mapstructure:"defaults" yaml:"defaults"`
}

// ExtractorCfg configures one extraction engine.
type ExtractorCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"`             // "openai", "command", "mock"
	Model     string  `mapstructure:"model" yaml:"model"`           // Model name (for openai)
	APIKey    string  `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	Command   string  `mapstructure:"command" yaml:"command"`       // Executable (for command type)
	Args      []string `mapstructure:"args" yaml:"args"`            // Extra arguments before the image path
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// EngineCfg holds the comparison engine tuning knobs. Zero values fall
// back to the built-in defaults.
type EngineCfg struct {
	DedupeThreshold        float64 `mapstructure:"dedupe_threshold" yaml:"dedupe_threshold"`
	AcceptThreshold        float64 `mapstructure:"accept_threshold" yaml:"accept_threshold"`
	MatchMode              string  `mapstructure:"match_mode" yaml:"match_mode"` // "greedy", "bipartite"
	MinRangeOverlap        float64 `mapstructure:"min_range_overlap" yaml:"min_range_overlap"`
	GapRatio               float64 `mapstructure:"gap_ratio" yaml:"gap_ratio"`
	AlignTolerance         float64 `mapstructure:"align_tolerance" yaml:"align_tolerance"`
	CenterTolerance        float64 `mapstructure:"center_tolerance" yaml:"center_tolerance"`
	RedundantAreaTolerance float64 `mapstructure:"redundant_area_tolerance" yaml:"redundant_area_tolerance"`
}

// DefaultsCfg specifies default selections for runs.
type DefaultsCfg struct {
	Extractors []string `mapstructure:"extractors" yaml:"extractors"` // Ordered list of extractors
	Baseline   string   `mapstructure:"baseline" yaml:"baseline"`     // Extractor treated as baseline in reports
	MaxWorkers int      `mapstructure:"max_workers" yaml:"max_workers"`
	DPI        int      `mapstructure:"dpi" yaml:"dpi"` // Page render resolution
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Extractors: map[string]ExtractorCfg{
			"openai": {
				Type:      "openai",
				Model:     "gpt-4o-mini",
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 2.0,
				Enabled:   true,
			},
			"tesseract": {
				Type:    "command",
				Command: "tesseract",
				Enabled: true,
			},
		},
		Engine: EngineCfg{
			DedupeThreshold:        0.9,
			AcceptThreshold:        0.5,
			MatchMode:              "bipartite",
			GapRatio:               0.5,
			AlignTolerance:         0.02,
			CenterTolerance:        0.05,
			RedundantAreaTolerance: 1e-3,
		},
		Defaults: DefaultsCfg{
			Extractors: []string{"openai", "tesseract"},
			Baseline:   "tesseract",
			MaxWorkers: 4,
			DPI:        150,
		},
	}
}

// GetExtractor returns an extractor config by name.
func (c *Config) GetExtractor(name string) (ExtractorCfg, bool) {
	cfg, ok := c.Extractors[name]
	return cfg, ok
}

// EnabledExtractors returns all enabled extractors.
func (c *Config) EnabledExtractors() map[string]ExtractorCfg {
	result := make(map[string]ExtractorCfg)
	for name, cfg := range c.Extractors {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// EngineParams converts the engine section into validated parameters.
// Unset fields take the built-in defaults; the string match mode is
// mapped onto its typed form.
func (c *Config) EngineParams() engine.Params {
	p := engine.DefaultParams()
	e := c.Engine
	if e.DedupeThreshold > 0 {
		p.DedupeThreshold = e.DedupeThreshold
	}
	if e.AcceptThreshold > 0 {
		p.AcceptThreshold = e.AcceptThreshold
	}
	if e.MatchMode != "" {
		p.MatchMode = engine.MatchMode(e.MatchMode)
	}
	if e.MinRangeOverlap > 0 {
		p.MinRangeOverlap = e.MinRangeOverlap
	}
	if e.GapRatio > 0 {
		p.GapRatio = e.GapRatio
	}
	if e.AlignTolerance > 0 {
		p.AlignTolerance = e.AlignTolerance
	}
	if e.CenterTolerance > 0 {
		p.CenterTolerance = e.CenterTolerance
	}
	if e.RedundantAreaTolerance > 0 {
		p.RedundantAreaTolerance = e.RedundantAreaTolerance
	}
	return p
}
