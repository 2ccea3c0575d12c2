// Package profile persists a minimal user profile for offline display.
package profile

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hoardlabs/hoard/internal/db"
	"github.com/hoardlabs/hoard/internal/models"
)

// DefaultID is used when the remote profile id is not yet known.
const DefaultID = "default"

// Store reads and writes the single cached profile row.
type Store struct {
	db *db.DB
}

// NewStore creates a profile store over the local database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Save upserts the cached profile. An empty id falls back to DefaultID.
func (s *Store) Save(p *models.UserProfile) error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}
	if p.ID == "" {
		p.ID = DefaultID
	}

	result := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "display_name", "avatar_url", "updated_at",
		}),
	}).Create(p)
	if result.Error != nil {
		return fmt.Errorf("save profile: %w", result.Error)
	}
	return nil
}

// Get returns the cached profile, or (nil, nil) when none is stored.
func (s *Store) Get() (*models.UserProfile, error) {
	var p models.UserProfile
	result := s.db.Order("updated_at DESC").First(&p)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", result.Error)
	}
	return &p, nil
}

// Clear removes any cached profile. Called on sign-out alongside the
// offline data wipe.
func (s *Store) Clear() error {
	result := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.UserProfile{})
	if result.Error != nil {
		return fmt.Errorf("clear profile: %w", result.Error)
	}
	return nil
}
