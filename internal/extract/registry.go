package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/time/rate"

	"github.com/blocklens/blocklens/internal/config"
	"github.com/blocklens/blocklens/internal/region"
)

// Registry holds the configured extractors. It supports
// config-driven instantiation, hot-reload, and thread-safe access.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
	logger     *slog.Logger
}

// NewRegistry creates a new empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]Extractor),
		logger:     slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register registers an extractor by name.
func (r *Registry) Register(name string, e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[name] = e
	if r.logger != nil {
		r.logger.Info("registered extractor", "name", name)
	}
}

// Unregister removes an extractor by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.extractors, name)
	if r.logger != nil {
		r.logger.Info("unregistered extractor", "name", name)
	}
}

// Get returns an extractor by name.
func (r *Registry) Get(name string) (Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[name]
	if !ok {
		return nil, fmt.Errorf("extractor not found: %s", name)
	}
	return e, nil
}

// Has checks if an extractor is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.extractors[name]
	return ok
}

// List returns all registered extractor names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.extractors))
	for name := range r.extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig creates a registry with extractors based on
// configuration. Only enabled extractors are registered.
func NewRegistryFromConfig(cfg *config.Config, logger *slog.Logger) *Registry {
	r := NewRegistry()
	if logger != nil {
		r.logger = logger
	}
	r.apply(cfg)
	return r
}

// Reload updates the registry from new configuration. Extractors no
// longer configured are unregistered; changed ones are recreated.
func (r *Registry) Reload(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, ec := range cfg.Extractors {
		if !ec.Enabled {
			continue
		}
		e := create(name, ec, cfg)
		if e == nil {
			continue
		}
		want[name] = true
		r.extractors[name] = e
	}

	for name := range r.extractors {
		if !want[name] {
			delete(r.extractors, name)
			if r.logger != nil {
				r.logger.Info("unregistered extractor", "name", name)
			}
		}
	}
}

// apply registers configured extractors without locking (init only).
func (r *Registry) apply(cfg *config.Config) {
	for name, ec := range cfg.Extractors {
		if !ec.Enabled {
			continue
		}
		e := create(name, ec, cfg)
		if e == nil {
			if r.logger != nil {
				r.logger.Warn("skipping extractor with unknown type", "name", name, "type", ec.Type)
			}
			continue
		}
		r.extractors[name] = e
	}
}

// create builds one extractor from its config, wrapping it with a
// rate limiter when a limit is set.
func create(name string, ec config.ExtractorCfg, cfg *config.Config) Extractor {
	var e Extractor
	switch ec.Type {
	case "openai":
		e = NewOpenAIExtractor(OpenAIConfig{
			Name:   name,
			Model:  ec.Model,
			APIKey: cfg.ResolveAPIKey(name),
		})
	case "command":
		ce, err := NewCommandExtractor(CommandConfig{
			Name:    name,
			Command: ec.Command,
			Args:    ec.Args,
		})
		if err != nil {
			return nil
		}
		e = ce
	case "mock":
		e = NewMockExtractor(name, nil)
	default:
		return nil
	}

	if ec.RateLimit > 0 {
		e = &limitedExtractor{
			inner:   e,
			limiter: rate.NewLimiter(rate.Limit(ec.RateLimit), 1),
		}
	}
	return e
}

// limitedExtractor throttles an extractor with a token bucket.
type limitedExtractor struct {
	inner   Extractor
	limiter *rate.Limiter
}

func (l *limitedExtractor) Name() string { return l.inner.Name() }

func (l *limitedExtractor) ExtractPage(ctx context.Context, imagePath string, page int) ([]region.Region, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.inner.ExtractPage(ctx, imagePath, page)
}
