package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/blocklens/blocklens/internal/api"
	"github.com/blocklens/blocklens/internal/config"
	"github.com/blocklens/blocklens/internal/engine"
	"github.com/blocklens/blocklens/internal/extract"
	"github.com/blocklens/blocklens/internal/home"
	"github.com/blocklens/blocklens/internal/runs"
	"github.com/blocklens/blocklens/internal/server/endpoints"
	"github.com/blocklens/blocklens/internal/store"
	"github.com/blocklens/blocklens/internal/svcctx"
)

// Server is the main Blocklens HTTP server. It owns the document
// store, the consolidation engine, the extractor registry, and the
// run manager.
type Server struct {
	httpServer *http.Server
	home       *home.Dir
	store      *store.Store
	engine     *engine.Engine
	registry   *extract.Registry
	runManager *runs.Manager
	configMgr  *config.Manager
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// Home is the blocklens home directory
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
	// SwaggerSpecPath overrides the swagger.json location
	SwaggerSpecPath string
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Home == nil {
		return nil, errors.New("home directory is required")
	}

	registry := extract.NewRegistry()
	registry.SetLogger(cfg.Logger)

	if cfg.ConfigManager != nil {
		registry.Reload(cfg.ConfigManager.Get())

		cfg.ConfigManager.OnChange(func(c *config.Config) {
			registry.Reload(c)
			cfg.Logger.Info("extractor registry reloaded from config")
		})
	}

	s := &Server{
		home:      cfg.Home,
		engine:    engine.New(cfg.Logger),
		registry:  registry,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}

	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{SwaggerSpecPath: cfg.SwaggerSpecPath}) {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start initializes storage and the run manager, then serves HTTP.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.initialize(ctx); err != nil {
		s.setNotRunning()
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// initialize builds the store, config store, and run manager.
func (s *Server) initialize(ctx context.Context) error {
	if err := s.home.EnsureExists(); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}

	st, err := store.New(s.home, s.logger)
	if err != nil {
		return fmt.Errorf("failed to open document store: %w", err)
	}

	configStore := config.NewFileStore(filepath.Join(s.home.DataPath(), "settings.json"))
	if err := config.SeedDefaults(ctx, configStore, s.logger); err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}

	maxWorkers := 0
	if s.configMgr != nil {
		maxWorkers = s.configMgr.Get().Defaults.MaxWorkers
	}
	runManager, err := runs.NewManager(s.home, st, s.registry, s.engine, maxWorkers, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create run manager: %w", err)
	}

	s.mu.Lock()
	s.store = st
	s.runManager = runManager
	s.services = &svcctx.Services{
		Store:       st,
		Engine:      s.engine,
		Extractors:  s.registry,
		Runs:        runManager,
		ConfigMgr:   s.configMgr,
		ConfigStore: configStore,
		Logger:      s.logger,
		Home:        s.home,
	}
	s.mu.Unlock()

	return nil
}

// shutdown performs graceful shutdown of the HTTP server and the run
// manager.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.runManager != nil {
		s.runManager.Close()
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Store returns the document store.
// Returns nil if the server hasn't started yet.
func (s *Server) Store() *store.Store {
	return s.store
}

// RunManager returns the run manager.
// Returns nil if the server hasn't started yet.
func (s *Server) RunManager() *runs.Manager {
	return s.runManager
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Registry returns the extractor registry.
func (s *Server) Registry() *extract.Registry {
	return s.registry
}

// Handler returns the root HTTP handler, with service context
// enrichment applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		s.mu.RLock()
		services := s.services
		s.mu.RUnlock()
		if services != nil {
			ctx = svcctx.WithServices(ctx, services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the store or run manager aren't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		ready := s.store != nil && s.runManager != nil
		s.mu.RUnlock()
		if !ready {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
