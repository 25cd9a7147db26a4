package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "settings.json"))
}

func TestValidateKey(t *testing.T) {
	valid := []string{
		"engine.dedupe_threshold",
		"defaults.max_workers",
		"extractors.some-engine.enabled",
		"a",
	}
	for _, key := range valid {
		if err := ValidateKey(key); err != nil {
			t.Errorf("ValidateKey(%q) = %v, expected valid", key, err)
		}
	}

	invalid := []string{
		"",
		".leading.dot",
		"trailing.dot.",
		"has space",
		"has/slash",
		"has$dollar",
	}
	for _, key := range invalid {
		if err := ValidateKey(key); err == nil {
			t.Errorf("ValidateKey(%q) expected error", key)
		}
	}
}

func TestFileStore_SetAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Set(ctx, "engine.match_mode", "greedy", "matching mode"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	entry, err := store.Get(ctx, "engine.match_mode")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry == nil {
		t.Fatal("Get() returned nil for existing key")
	}
	if entry.Value != "greedy" {
		t.Errorf("Value = %v, want %q", entry.Value, "greedy")
	}
	if entry.Description != "matching mode" {
		t.Errorf("Description = %q", entry.Description)
	}
}

func TestFileStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	entry, err := store.Get(ctx, "does.not.exist")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry != nil {
		t.Errorf("Get() = %v, want nil for non-existent key", entry)
	}
}

func TestFileStore_SetRejectsInvalidKey(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Set(ctx, "bad key!", 1, ""); err == nil {
		t.Error("Set() should reject invalid key")
	}
}

func TestFileStore_Update(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Set(ctx, "defaults.max_workers", 4, "workers"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set(ctx, "defaults.max_workers", 8, "workers"); err != nil {
		t.Fatalf("Set() update error = %v", err)
	}

	entry, err := store.Get(ctx, "defaults.max_workers")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	// JSON round-trips numbers as float64.
	if entry.Value != float64(8) {
		t.Errorf("Value = %v, want 8", entry.Value)
	}
}

func TestFileStore_GetByPrefix(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	entries := map[string]any{
		"engine.dedupe_threshold": 0.9,
		"engine.accept_threshold": 0.5,
		"defaults.baseline":       "tesseract",
	}
	for k, v := range entries {
		if err := store.Set(ctx, k, v, ""); err != nil {
			t.Fatalf("Set(%s) error = %v", k, err)
		}
	}

	matched, err := store.GetByPrefix(ctx, "engine.")
	if err != nil {
		t.Fatalf("GetByPrefix() error = %v", err)
	}
	if len(matched) != 2 {
		t.Errorf("GetByPrefix() returned %d entries, want 2", len(matched))
	}
	if _, ok := matched["defaults.baseline"]; ok {
		t.Error("GetByPrefix() leaked an unrelated key")
	}
}

func TestFileStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Set(ctx, "engine.gap_ratio", 0.5, ""); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Delete(ctx, "engine.gap_ratio"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	entry, err := store.Get(ctx, "engine.gap_ratio")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry != nil {
		t.Error("entry survived delete")
	}

	// Deleting a missing key is not an error.
	if err := store.Delete(ctx, "engine.gap_ratio"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.json")

	first := NewFileStore(path)
	if err := first.Set(ctx, "defaults.dpi", 200, "render dpi"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	second := NewFileStore(path)
	entry, err := second.Get(ctx, "defaults.dpi")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry == nil || entry.Value != float64(200) {
		t.Errorf("entry = %+v, want persisted value 200", entry)
	}
}

func TestFileStore_NoTempFileLeftBehind(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "settings.json"))

	if err := store.Set(ctx, "defaults.baseline", "openai", ""); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "settings.json.tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind after write")
	}
}
