package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.jsonc"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("got %+v, want defaults %+v", cfg, Default())
	}
}

func TestLoadOverlaysOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bitvault.jsonc")
	contents := `{
		// storage tunables
		"storage": {
			"directory": "/tmp/bitvault-data",
			"max_file_size": 1048576,
		},
	}`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("seed config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.Directory != "/tmp/bitvault-data" {
		t.Errorf("Directory = %q, want %q", cfg.Storage.Directory, "/tmp/bitvault-data")
	}
	if cfg.Storage.MaxFileSize != 1048576 {
		t.Errorf("MaxFileSize = %d, want 1048576", cfg.Storage.MaxFileSize)
	}
	// Untouched field should retain its default.
	if cfg.Storage.MergeIntervalSeconds != Default().Storage.MergeIntervalSeconds {
		t.Errorf("MergeIntervalSeconds = %d, want default %d", cfg.Storage.MergeIntervalSeconds, Default().Storage.MergeIntervalSeconds)
	}
}

func TestLoadRejectsInvalidJSONC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bitvault.jsonc")
	if err := os.WriteFile(path, []byte("{ not valid json }"), 0o644); err != nil {
		t.Fatalf("seed config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Errorf("expected error for invalid JSONC")
	}
}
