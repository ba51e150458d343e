// Package config loads bitvaultd's JSONC configuration file, overlaying it
// on top of built-in defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// Storage holds the on-disk engine's tunables.
type Storage struct {
	Directory            string `json:"directory"`
	MaxFileSize          int64  `json:"max_file_size"`
	MergeIntervalSeconds int64  `json:"merge_interval_seconds"`
}

// Config is the top-level configuration document.
type Config struct {
	Storage Storage `json:"storage"`
}

// Default returns the built-in configuration used when no file is present
// or a loaded file leaves fields unset.
func Default() Config {
	return Config{
		Storage: Storage{
			Directory:            "./data",
			MaxFileSize:          16 << 20,
			MergeIntervalSeconds: 30,
		},
	}
}

// Load reads path as JSONC and overlays it on Default(). A missing file is
// not an error — the defaults stand alone in that case.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC in %q: %w", path, err)
	}

	var overlay Config
	if err := json.Unmarshal(standardized, &overlay); err != nil {
		return Config{}, fmt.Errorf("invalid JSON in %q: %w", path, err)
	}

	return merge(cfg, overlay), nil
}

// merge overlays any non-zero field of overlay onto base.
func merge(base, overlay Config) Config {
	if overlay.Storage.Directory != "" {
		base.Storage.Directory = overlay.Storage.Directory
	}
	if overlay.Storage.MaxFileSize != 0 {
		base.Storage.MaxFileSize = overlay.Storage.MaxFileSize
	}
	if overlay.Storage.MergeIntervalSeconds != 0 {
		base.Storage.MergeIntervalSeconds = overlay.Storage.MergeIntervalSeconds
	}
	return base
}
