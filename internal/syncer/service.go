package syncer

import (
	"fmt"

	"github.com/hoardlabs/hoard/internal/models"
)

// StorageStats aggregates database and image cache usage for the UI.
func (s *Syncer) StorageStats() (*models.StorageStats, error) {
	stats := &models.StorageStats{}

	dbSize, err := s.db.StorageSizeEstimate()
	if err != nil {
		return nil, fmt.Errorf("database size: %w", err)
	}
	stats.DatabaseSize = dbSize

	imageSize, err := s.images.Size()
	if err != nil {
		return nil, fmt.Errorf("image cache size: %w", err)
	}
	stats.ImageCacheSize = imageSize
	stats.TotalSize = dbSize + imageSize

	if stats.SavesCount, err = s.db.CountSaves(); err != nil {
		return nil, err
	}
	if stats.SnapshotsCount, err = s.db.CountSnapshots(); err != nil {
		return nil, err
	}
	if stats.ImagesCount, err = s.images.Count(); err != nil {
		return nil, fmt.Errorf("image cache count: %w", err)
	}

	return stats, nil
}

// ClearAllOfflineData wipes the local store and the image cache together,
// then resets the sync state to idle with no watermark.
func (s *Syncer) ClearAllOfflineData() error {
	if err := s.db.ClearAllData(); err != nil {
		return err
	}
	if err := s.images.Clear(); err != nil {
		return err
	}

	s.hub.Update(func(st *models.SyncState) {
		st.Status = models.SyncIdle
		st.Phase = ""
		st.LastSyncedAt = 0
		st.ItemsSynced = 0
		st.TotalItems = 0
		st.Error = ""
	})
	return nil
}

// OfflineSaves lists cached saves for offline-capable views.
func (s *Syncer) OfflineSaves(filter models.SaveFilter) ([]models.Save, error) {
	return s.db.ListSaves(filter)
}

// OfflineSave returns one cached save, or nil when it is not cached.
func (s *Syncer) OfflineSave(id string) (*models.Save, error) {
	return s.db.GetSave(id)
}

// OfflineSnapshot returns the cached reader content for a save, or nil.
func (s *Syncer) OfflineSnapshot(id string) (*models.Snapshot, error) {
	return s.db.GetSnapshot(id)
}

// IsSaveAvailableOffline reports whether a save is in the local store.
func (s *Syncer) IsSaveAvailableOffline(id string) (bool, error) {
	save, err := s.db.GetSave(id)
	if err != nil {
		return false, err
	}
	return save != nil, nil
}

// ImageURI resolves the display URI for a save's preview image: the local
// file when cached, the remote URL otherwise.
func (s *Syncer) ImageURI(save *models.Save) string {
	if save == nil {
		return ""
	}
	return s.images.ImageURI(save.ID, save.ImageURL)
}
