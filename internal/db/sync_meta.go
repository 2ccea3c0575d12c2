package db

import (
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hoardlabs/hoard/internal/models"
)

// GetMeta retrieves a sync metadata value. Missing keys return "".
func (db *DB) GetMeta(key string) (string, error) {
	var meta models.SyncMeta
	err := db.First(&meta, "key = ?", key).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", storageErr("get sync meta", err)
	}
	return meta.Value, nil
}

// SetMeta sets a sync metadata value.
func (db *DB) SetMeta(key, value string) error {
	meta := models.SyncMeta{Key: key, Value: value}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&meta).Error
	if err != nil {
		return storageErr("set sync meta", err)
	}
	return nil
}

// DeleteMeta deletes a sync metadata entry.
func (db *DB) DeleteMeta(key string) error {
	if err := db.Delete(&models.SyncMeta{}, "key = ?", key).Error; err != nil {
		return storageErr("delete sync meta", err)
	}
	return nil
}

// GetLastSyncedAt returns the sync watermark as epoch milliseconds.
// Returns 0 when no sync has completed yet.
func (db *DB) GetLastSyncedAt() (int64, error) {
	value, err := db.GetMeta(models.SyncMetaLastSyncedAt)
	if err != nil {
		return 0, err
	}
	if value == "" {
		return 0, nil
	}
	ts, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, nil // unparseable watermark is treated as "never synced"
	}
	return ts, nil
}

// SetLastSyncedAt records the sync watermark as epoch milliseconds.
func (db *DB) SetLastSyncedAt(ts int64) error {
	return db.SetMeta(models.SyncMetaLastSyncedAt, strconv.FormatInt(ts, 10))
}

// GetOrCreateTrackingID returns the persistent anonymous telemetry id,
// creating one on first use. Wiped along with the rest of the local data.
func (db *DB) GetOrCreateTrackingID() string {
	id, err := db.GetMeta(models.SyncMetaTrackingID)
	if err == nil && id != "" {
		return id
	}

	id = uuid.New().String()
	if err := db.SetMeta(models.SyncMetaTrackingID, id); err != nil {
		// Fall back to a per-session id rather than failing the caller.
		return uuid.New().String()
	}
	return id
}
