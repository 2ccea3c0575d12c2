package config

import "github.com/hoardlabs/hoard/internal/models"

const (
	// DefaultAPIURL is the production query/mutation API.
	DefaultAPIURL = "https://api.hoard.app"

	// DefaultRecentDays bounds the "recent" sync mode.
	DefaultRecentDays = 30

	// MaxPageSize bounds each remote list call.
	MaxPageSize = 500
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseDir: DefaultBaseDir(),

		API: APIConfig{
			URL: DefaultAPIURL,
		},

		Offline: OfflineConfig{
			Enabled:    true,
			SyncMode:   models.SyncModeAll,
			WifiOnly:   false,
			RecentDays: DefaultRecentDays,
			PageSize:   MaxPageSize,
		},
	}
}
