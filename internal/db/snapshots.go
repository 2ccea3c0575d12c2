package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hoardlabs/hoard/internal/models"
)

// UpsertSnapshot inserts or replaces the snapshot for a save.
func (db *DB) UpsertSnapshot(snapshot *models.Snapshot) error {
	snapshot.SyncedAt = models.NowMillis()
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "save_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "title", "byline", "excerpt", "word_count",
			"content_html", "content_text", "synced_at",
		}),
	}).Create(snapshot).Error
	if err != nil {
		return storageErr("upsert snapshot", err)
	}
	return nil
}

// GetSnapshot retrieves the snapshot for a save. Returns (nil, nil) when the
// save has no cached snapshot.
func (db *DB) GetSnapshot(saveID string) (*models.Snapshot, error) {
	var snapshot models.Snapshot
	err := db.First(&snapshot, "save_id = ?", saveID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, storageErr("get snapshot", err)
	}
	return &snapshot, nil
}

// DeleteSnapshot removes the snapshot for a save, if any.
func (db *DB) DeleteSnapshot(saveID string) error {
	if err := db.Delete(&models.Snapshot{}, "save_id = ?", saveID).Error; err != nil {
		return storageErr("delete snapshot", err)
	}
	return nil
}

// DeleteAllSnapshots removes every snapshot row.
func (db *DB) DeleteAllSnapshots() error {
	err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Snapshot{}).Error
	if err != nil {
		return storageErr("delete all snapshots", err)
	}
	return nil
}

// CountSnapshots returns the number of cached snapshots.
func (db *DB) CountSnapshots() (int64, error) {
	var count int64
	if err := db.Model(&models.Snapshot{}).Count(&count).Error; err != nil {
		return 0, storageErr("count snapshots", err)
	}
	return count, nil
}
