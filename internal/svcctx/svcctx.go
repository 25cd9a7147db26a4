// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/blocklens/blocklens/internal/config"
	"github.com/blocklens/blocklens/internal/engine"
	"github.com/blocklens/blocklens/internal/extract"
	"github.com/blocklens/blocklens/internal/home"
	"github.com/blocklens/blocklens/internal/runs"
	"github.com/blocklens/blocklens/internal/store"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Store       *store.Store
	Engine      *engine.Engine
	Extractors  *extract.Registry
	Runs        *runs.Manager
	ConfigMgr   *config.Manager
	ConfigStore config.Store
	Logger      *slog.Logger
	Home        *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// StoreFrom extracts the document store from context.
func StoreFrom(ctx context.Context) *store.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// EngineFrom extracts the consolidation engine from context.
func EngineFrom(ctx context.Context) *engine.Engine {
	if s := ServicesFrom(ctx); s != nil {
		return s.Engine
	}
	return nil
}

// ExtractorsFrom extracts the extractor registry from context.
func ExtractorsFrom(ctx context.Context) *extract.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Extractors
	}
	return nil
}

// RunsFrom extracts the run manager from context.
func RunsFrom(ctx context.Context) *runs.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Runs
	}
	return nil
}

// ConfigManagerFrom extracts the config manager from context.
func ConfigManagerFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.ConfigMgr
	}
	return nil
}

// ConfigStoreFrom extracts the config store from context.
func ConfigStoreFrom(ctx context.Context) config.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.ConfigStore
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// EngineParamsFrom resolves the engine parameters from the config
// manager, falling back to defaults when none is attached.
func EngineParamsFrom(ctx context.Context) engine.Params {
	if mgr := ConfigManagerFrom(ctx); mgr != nil {
		return mgr.Get().EngineParams()
	}
	return engine.DefaultParams()
}
