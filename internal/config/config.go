// Package config handles application configuration management.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hoardlabs/hoard/internal/models"
)

// Config holds all application configuration.
type Config struct {
	// Base directory for all Hoard data (~/.hoard)
	BaseDir string `yaml:"base_dir,omitempty"`

	// Remote API settings
	API APIConfig `yaml:"api"`

	// Offline cache / sync policy
	Offline OfflineConfig `yaml:"offline"`
}

// APIConfig holds remote API settings.
type APIConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"-"` // env only, never written to disk
}

// OfflineConfig is the user-selected offline sync policy.
type OfflineConfig struct {
	// Enabled toggles offline sync entirely. Disabled means every sync
	// attempt is a silent no-op.
	Enabled bool `yaml:"enabled"`

	// SyncMode scopes which saves are pulled offline.
	SyncMode models.SyncMode `yaml:"sync_mode"`

	// WifiOnly suppresses syncing on metered networks.
	WifiOnly bool `yaml:"wifi_only"`

	// RecentDays bounds the "recent" sync mode.
	RecentDays int `yaml:"recent_days"`

	// Collections selects collection ids for the "collections" sync mode.
	Collections []string `yaml:"collections,omitempty"`

	// PageSize bounds each remote list call. Capped at MaxPageSize.
	PageSize int `yaml:"page_size"`
}

// Load reads configuration from defaults, the config file, and environment
// variable overrides, in that order.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if base := os.Getenv("HOARD_BASE_DIR"); base != "" {
		cfg.BaseDir = base
	}

	if err := loadFile(cfg, filepath.Join(cfg.BaseDir, "config.yaml")); err != nil {
		return nil, err
	}

	if url := os.Getenv("HOARD_API_URL"); url != "" {
		cfg.API.URL = url
	}
	if token := os.Getenv("HOARD_TOKEN"); token != "" {
		cfg.API.Token = token
	}

	cfg.normalize()

	if err := ensureDirectories(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile merges a yaml config file into cfg. A missing file is fine.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// normalize clamps values into their valid ranges.
func (c *Config) normalize() {
	if !isValidMode(c.Offline.SyncMode) {
		c.Offline.SyncMode = models.SyncModeAll
	}
	if c.Offline.RecentDays <= 0 {
		c.Offline.RecentDays = DefaultRecentDays
	}
	if c.Offline.PageSize <= 0 || c.Offline.PageSize > MaxPageSize {
		c.Offline.PageSize = MaxPageSize
	}
}

func isValidMode(mode models.SyncMode) bool {
	for _, m := range models.ValidSyncModes() {
		if mode == m {
			return true
		}
	}
	return false
}

// ensureDirectories creates required directories if they don't exist.
func ensureDirectories(cfg *Config) error {
	paths := GetPaths(cfg)
	dirs := []string{
		cfg.BaseDir,
		paths.Images,
		paths.Logs,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
