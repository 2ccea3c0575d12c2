package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Paths contains commonly used file paths.
type Paths struct {
	Database string // Main SQLite database
	Config   string // Config file
	Images   string // Image cache directory
	Logs     string // Log directory
}

// GetPaths returns all commonly used paths based on config.
// The image cache lives under the XDG cache home: it is re-downloadable
// content the OS may reclaim, unlike the database.
func GetPaths(cfg *Config) Paths {
	return Paths{
		Database: filepath.Join(cfg.BaseDir, "hoard.db"),
		Config:   filepath.Join(cfg.BaseDir, "config.yaml"),
		Images:   filepath.Join(xdg.CacheHome, "hoard", "images"),
		Logs:     filepath.Join(cfg.BaseDir, "logs"),
	}
}

// DefaultBaseDir returns the default base directory (~/.hoard).
func DefaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hoard"
	}
	return filepath.Join(home, ".hoard")
}
