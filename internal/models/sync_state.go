package models

// SyncStatus is the lifecycle state of the sync engine.
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncSyncing SyncStatus = "syncing"
	SyncError   SyncStatus = "error"
	SyncOffline SyncStatus = "offline"
)

// SyncPhase names the stage a running sync is in, for progress display.
type SyncPhase string

const (
	PhaseSaves     SyncPhase = "saves"
	PhaseSnapshots SyncPhase = "snapshots"
	PhaseImages    SyncPhase = "images"
	PhasePrune     SyncPhase = "prune"
)

// SyncMode is the user-selected scope policy controlling which saves are
// pulled offline.
type SyncMode string

const (
	SyncModeAll         SyncMode = "all"
	SyncModeFavorites   SyncMode = "favorites"
	SyncModeRecent      SyncMode = "recent"
	SyncModeCollections SyncMode = "collections"
)

// ValidSyncModes returns all valid sync modes.
func ValidSyncModes() []SyncMode {
	return []SyncMode{SyncModeAll, SyncModeFavorites, SyncModeRecent, SyncModeCollections}
}

// SyncState is the in-memory, observable state of the sync engine. It is
// rebuilt from the persisted watermark and a live connectivity probe at
// startup, never restored.
type SyncState struct {
	Status       SyncStatus `json:"status"`
	Phase        SyncPhase  `json:"phase,omitempty"`
	LastSyncedAt int64      `json:"last_synced_at,omitempty"` // epoch ms, 0 = never
	ItemsSynced  int        `json:"items_synced"`
	TotalItems   int        `json:"total_items"`
	Error        string     `json:"error,omitempty"`
	IsOnline     bool       `json:"is_online"`
}

// StorageStats aggregates on-device usage of the offline cache.
type StorageStats struct {
	DatabaseSize   int64 `json:"database_size"`
	ImageCacheSize int64 `json:"image_cache_size"`
	TotalSize      int64 `json:"total_size"`
	SavesCount     int64 `json:"saves_count"`
	SnapshotsCount int64 `json:"snapshots_count"`
	ImagesCount    int   `json:"images_count"`
}
