package extract

import (
	"context"
	"testing"
	"time"

	"github.com/blocklens/blocklens/internal/config"
)

func TestRegistry_RegisterGet(t *testing.T) {
	r := NewRegistry()
	mock := NewMockExtractor("m1", nil)
	r.Register("m1", mock)

	if !r.Has("m1") {
		t.Error("expected m1 to be registered")
	}
	e, err := r.Get("m1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if e.Name() != "m1" {
		t.Errorf("expected name m1, got %s", e.Name())
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("expected error for unknown extractor")
	}

	r.Unregister("m1")
	if r.Has("m1") {
		t.Error("expected m1 to be unregistered")
	}
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()
	r.Register("zeta", NewMockExtractor("zeta", nil))
	r.Register("alpha", NewMockExtractor("alpha", nil))

	names := r.List()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("expected sorted [alpha zeta], got %v", names)
	}
}

func TestNewRegistryFromConfig(t *testing.T) {
	cfg := &config.Config{
		Extractors: map[string]config.ExtractorCfg{
			"fast":     {Type: "mock", Enabled: true},
			"disabled": {Type: "mock", Enabled: false},
			"weird":    {Type: "carrier-pigeon", Enabled: true},
		},
	}

	r := NewRegistryFromConfig(cfg, nil)
	if !r.Has("fast") {
		t.Error("expected enabled mock extractor to be registered")
	}
	if r.Has("disabled") {
		t.Error("disabled extractor must not be registered")
	}
	if r.Has("weird") {
		t.Error("unknown type must be skipped")
	}
}

func TestRegistry_Reload(t *testing.T) {
	r := NewRegistryFromConfig(&config.Config{
		Extractors: map[string]config.ExtractorCfg{
			"a": {Type: "mock", Enabled: true},
			"b": {Type: "mock", Enabled: true},
		},
	}, nil)

	r.Reload(&config.Config{
		Extractors: map[string]config.ExtractorCfg{
			"b": {Type: "mock", Enabled: true},
			"c": {Type: "mock", Enabled: true},
		},
	})

	if r.Has("a") {
		t.Error("expected a to be removed on reload")
	}
	if !r.Has("b") || !r.Has("c") {
		t.Errorf("expected b and c after reload, got %v", r.List())
	}
}

func TestRegistry_RateLimit(t *testing.T) {
	cfg := &config.Config{
		Extractors: map[string]config.ExtractorCfg{
			"slow": {Type: "mock", Enabled: true, RateLimit: 5},
		},
	}
	r := NewRegistryFromConfig(cfg, nil)

	e, err := r.Get("slow")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, ok := e.(*limitedExtractor); !ok {
		t.Fatalf("expected rate-limited wrapper, got %T", e)
	}
	if e.Name() != "slow" {
		t.Errorf("wrapper must forward Name, got %s", e.Name())
	}

	// Two calls at 5 rps with burst 1 must spread out.
	start := time.Now()
	if _, err := e.ExtractPage(context.Background(), "", 1); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if _, err := e.ExtractPage(context.Background(), "", 1); err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("expected second call to wait for the limiter, elapsed %v", elapsed)
	}
}
