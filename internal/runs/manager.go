package runs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/blocklens/blocklens/internal/engine"
	"github.com/blocklens/blocklens/internal/extract"
	"github.com/blocklens/blocklens/internal/home"
	"github.com/blocklens/blocklens/internal/region"
	"github.com/blocklens/blocklens/internal/store"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

const runsFile = "runs.json"

// Manager owns run records and their background execution. Runs are
// persisted to runs.json under the home directory; execution is
// bounded by a worker semaphore.
type Manager struct {
	mu       sync.RWMutex
	home     *home.Dir
	store    *store.Store
	registry *extract.Registry
	engine   *engine.Engine
	logger   *slog.Logger

	runs map[string]*Run
	sem  chan struct{}
	wg   sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a run manager and loads persisted runs. Runs that
// were pending or running when the process stopped are marked failed.
func NewManager(h *home.Dir, st *store.Store, reg *extract.Registry, eng *engine.Engine, maxConcurrent int, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		home:     h,
		store:    st,
		registry: reg,
		engine:   eng,
		logger:   logger,
		runs:     make(map[string]*Run),
		sem:      make(chan struct{}, maxConcurrent),
		ctx:      ctx,
		cancel:   cancel,
	}

	if err := m.load(); err != nil {
		cancel()
		return nil, err
	}

	interrupted := 0
	for _, r := range m.runs {
		if r.Status == StatusPending || r.Status == StatusRunning {
			r.Status = StatusFailed
			r.Error = "interrupted by restart"
			now := time.Now().UTC()
			r.CompletedAt = &now
			interrupted++
		}
	}
	if interrupted > 0 {
		m.logger.Warn("marked interrupted runs as failed", "count", interrupted)
		if err := m.persist(); err != nil {
			cancel()
			return nil, err
		}
	}

	return m, nil
}

// Close stops accepting work and waits for in-flight runs to finish.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

// CreateRequest describes a new run.
type CreateRequest struct {
	DocumentID string
	Providers  []string // empty means every registered extractor
	Baseline   string
	Params     engine.Params
}

// Create validates the request, persists a pending run, and starts it
// in the background.
func (m *Manager) Create(req CreateRequest) (*Run, error) {
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	if _, err := m.store.GetDocument(req.DocumentID); err != nil {
		return nil, err
	}

	providers := req.Providers
	if len(providers) == 0 {
		providers = m.registry.List()
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no extractors configured")
	}
	for _, p := range providers {
		if !m.registry.Has(p) {
			return nil, fmt.Errorf("unknown extractor: %s", p)
		}
	}
	if req.Baseline != "" {
		found := false
		for _, p := range providers {
			if p == req.Baseline {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("baseline %s is not among the run providers", req.Baseline)
		}
	}

	run := NewRun(req.DocumentID, providers, req.Baseline, req.Params)

	m.mu.Lock()
	m.runs[run.ID] = run
	err := m.persist()
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.logger.Info("run created", "id", run.ID, "document", run.DocumentID, "providers", providers)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.execute(run.ID)
	}()

	return m.Get(run.ID)
}

// Get returns a copy of a run by ID.
func (m *Manager) Get(id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *r
	return &cp, nil
}

// List returns all runs, newest first.
func (m *Manager) List() []*Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// execute runs extraction and scoring for one run. It is the only
// writer of the run's status after creation.
func (m *Manager) execute(runID string) {
	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-m.ctx.Done():
		m.finish(runID, StatusFailed, "manager shutting down", nil)
		return
	}

	m.setRunning(runID)

	report, err := m.run(m.ctx, runID)
	if err != nil {
		m.logger.Error("run failed", "id", runID, "error", err)
		m.finish(runID, StatusFailed, err.Error(), nil)
		return
	}

	artifacts, err := m.writeArtifacts(runID, report)
	if err != nil {
		m.logger.Error("failed to write run artifacts", "id", runID, "error", err)
		m.finish(runID, StatusFailed, err.Error(), nil)
		return
	}

	m.finish(runID, StatusDone, "", artifacts)
	m.logger.Info("run completed", "id", runID, "artifacts", artifacts)
}

func (m *Manager) run(ctx context.Context, runID string) (*Report, error) {
	run, err := m.Get(runID)
	if err != nil {
		return nil, err
	}
	doc, err := m.store.GetDocument(run.DocumentID)
	if err != nil {
		return nil, err
	}

	// Phase 1: extract regions for every provider and page.
	timings := make(map[string]float64, len(run.Providers))
	for _, name := range run.Providers {
		extractor, err := m.registry.Get(name)
		if err != nil {
			return nil, err
		}
		started := time.Now()
		regions, err := m.extractAll(ctx, extractor, doc.ID, doc.PageCount)
		if err != nil {
			return nil, fmt.Errorf("extraction with %s failed: %w", name, err)
		}
		timings[name] = time.Since(started).Seconds()
		if err := m.store.SaveRegions(doc.ID, name, regions); err != nil {
			return nil, err
		}
	}
	m.engine.Invalidate(doc.ID)

	// Phase 2: score every provider against the per-page reference.
	pages := make(map[string][]engine.CoverageResult, len(run.Providers))
	for page := 1; page <= doc.PageCount; page++ {
		pr, err := m.store.PageRegions(doc.ID, page, run.Providers)
		if err != nil {
			return nil, err
		}
		for _, name := range run.Providers {
			cov, err := m.engine.Coverage(pr, name, run.Params)
			if err != nil {
				return nil, fmt.Errorf("coverage for %s page %d: %w", name, page, err)
			}
			pages[name] = append(pages[name], cov)
		}
	}

	return buildReport(run, doc, pages, timings), nil
}

// extractAll runs one extractor over every page image of a document.
func (m *Manager) extractAll(ctx context.Context, extractor extract.Extractor, docID string, pageCount int) ([]region.Region, error) {
	var all []region.Region
	for page := 1; page <= pageCount; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		imagePath := m.home.PageImagePath(docID, page)
		regions, err := extractor.ExtractPage(ctx, imagePath, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, regions...)
	}
	return all, nil
}

func (m *Manager) setRunning(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[runID]
	if !ok {
		return
	}
	r.Status = StatusRunning
	now := time.Now().UTC()
	r.StartedAt = &now
	if err := m.persist(); err != nil {
		m.logger.Error("failed to persist run state", "id", runID, "error", err)
	}
}

func (m *Manager) finish(runID string, status Status, errMsg string, artifacts []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[runID]
	if !ok {
		return
	}
	r.Status = status
	r.Error = errMsg
	r.Artifacts = artifacts
	now := time.Now().UTC()
	r.CompletedAt = &now
	if err := m.persist(); err != nil {
		m.logger.Error("failed to persist run state", "id", runID, "error", err)
	}
}

// Persistence

func (m *Manager) runsPath() string {
	return filepath.Join(m.home.RunsDir(), runsFile)
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.runsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read runs file: %w", err)
	}
	var runs map[string]*Run
	if err := json.Unmarshal(data, &runs); err != nil {
		return fmt.Errorf("failed to parse runs file: %w", err)
	}
	m.runs = runs
	return nil
}

// persist writes runs.json. Callers must hold m.mu.
func (m *Manager) persist() error {
	if err := os.MkdirAll(m.home.RunsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create runs dir: %w", err)
	}
	data, err := json.MarshalIndent(m.runs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal runs: %w", err)
	}
	path := m.runsPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write runs file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace runs file: %w", err)
	}
	return nil
}
