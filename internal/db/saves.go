package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hoardlabs/hoard/internal/models"
)

// saveSyncColumns are the columns refreshed when a remote save is upserted.
// local_image_path is deliberately excluded: it is owned by the image phase
// and written back through UpdateLocalImagePath.
var saveSyncColumns = []string{
	"space_id", "url", "title", "description", "note", "site_name",
	"image_url", "visibility", "is_archived", "is_favorite",
	"tags", "collections", "saved_at", "synced_at",
}

// UpsertSave inserts or replaces a save by id. Last write wins.
func (db *DB) UpsertSave(save *models.Save) error {
	save.SyncedAt = models.NowMillis()
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(saveSyncColumns),
	}).Create(save).Error
	if err != nil {
		return storageErr("upsert save", err)
	}
	return nil
}

// UpsertSaves inserts or replaces a batch of saves inside a single
// transaction. A concurrent reader sees either the pre- or post-batch
// state, never an interleaving.
func (db *DB) UpsertSaves(saves []models.Save) error {
	if len(saves) == 0 {
		return nil
	}
	now := models.NowMillis()
	err := db.Transaction(func(tx *DB) error {
		for i := range saves {
			saves[i].SyncedAt = now
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns(saveSyncColumns),
			}).Create(&saves[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageErr("upsert saves batch", err)
	}
	return nil
}

// UpdateLocalImagePath records the cached image location for a save.
// An empty path clears the reference.
func (db *DB) UpdateLocalImagePath(id, path string) error {
	err := db.Model(&models.Save{}).Where("id = ?", id).
		Update("local_image_path", path).Error
	if err != nil {
		return storageErr("update local image path", err)
	}
	return nil
}

// ClearLocalImagePaths clears local_image_path on every save whose id is in
// ids. Used after pruning so rows never reference deleted files.
func (db *DB) ClearLocalImagePaths(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := db.Model(&models.Save{}).Where("id IN ?", ids).
		Update("local_image_path", "").Error
	if err != nil {
		return storageErr("clear local image paths", err)
	}
	return nil
}

// GetSave retrieves a save by id. Returns (nil, nil) when not found.
func (db *DB) GetSave(id string) (*models.Save, error) {
	var save models.Save
	err := db.First(&save, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, storageErr("get save", err)
	}
	return &save, nil
}

// ListSaves returns saves matching the filter, newest first. Nil filter
// fields mean "no constraint".
func (db *DB) ListSaves(filter models.SaveFilter) ([]models.Save, error) {
	query := db.Model(&models.Save{})

	if filter.IsFavorite != nil {
		query = query.Where("is_favorite = ?", *filter.IsFavorite)
	}
	if filter.IsArchived != nil {
		query = query.Where("is_archived = ?", *filter.IsArchived)
	}
	if filter.Visibility != nil {
		query = query.Where("visibility = ?", *filter.Visibility)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var saves []models.Save
	if err := query.Order("saved_at DESC").Find(&saves).Error; err != nil {
		return nil, storageErr("list saves", err)
	}
	return saves, nil
}

// DeleteSave removes a save; its snapshot goes with it via cascade.
func (db *DB) DeleteSave(id string) error {
	err := db.Transaction(func(tx *DB) error {
		// Explicit snapshot delete keeps behavior identical on databases
		// where the cascade constraint was not migrated in.
		if err := tx.Delete(&models.Snapshot{}, "save_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Save{}, "id = ?", id).Error
	})
	if err != nil {
		return storageErr("delete save", err)
	}
	return nil
}

// DeleteAllSaves removes every save row (and, via cascade, all snapshots).
func (db *DB) DeleteAllSaves() error {
	err := db.Transaction(func(tx *DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Snapshot{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Save{}).Error
	})
	if err != nil {
		return storageErr("delete all saves", err)
	}
	return nil
}

// CountSaves returns the number of cached saves.
func (db *DB) CountSaves() (int64, error) {
	var count int64
	if err := db.Model(&models.Save{}).Count(&count).Error; err != nil {
		return 0, storageErr("count saves", err)
	}
	return count, nil
}

// GetCachedSaveIDs returns the ids of every cached save.
func (db *DB) GetCachedSaveIDs() ([]string, error) {
	var ids []string
	if err := db.Model(&models.Save{}).Pluck("id", &ids).Error; err != nil {
		return nil, storageErr("get cached save ids", err)
	}
	return ids, nil
}
