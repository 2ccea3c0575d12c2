// Package models defines the core data structures for Hoard's offline cache.
package models

import (
	"encoding/json"
	"time"
)

// Visibility of a save.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Save represents a remote bookmark record cached locally for offline use.
// Rows are written only by the sync engine; the UI layer reads them.
type Save struct {
	ID      string `gorm:"primaryKey;size:64" json:"id"` // remote-assigned, stable
	SpaceID string `gorm:"size:64;index" json:"space_id"`

	URL         string `gorm:"size:2048" json:"url"`
	Title       string `gorm:"size:500" json:"title,omitempty"`
	Description string `gorm:"size:2000" json:"description,omitempty"`
	Note        string `gorm:"type:text" json:"note,omitempty"`
	SiteName    string `gorm:"size:255" json:"site_name,omitempty"`

	ImageURL       string `gorm:"size:2048" json:"image_url,omitempty"`
	LocalImagePath string `gorm:"size:1024" json:"local_image_path,omitempty"`

	Visibility Visibility `gorm:"size:20;default:private" json:"visibility"`
	IsArchived bool       `gorm:"default:false;index" json:"is_archived"`
	IsFavorite bool       `gorm:"default:false;index" json:"is_favorite"`

	// Ordered lists serialized as JSON arrays on the row.
	Tags        string `gorm:"type:text" json:"-"`
	Collections string `gorm:"type:text" json:"-"`

	SavedAt  int64 `gorm:"index" json:"saved_at"` // epoch ms, remote timestamp
	SyncedAt int64 `json:"synced_at"`             // epoch ms, local write time

	Snapshot *Snapshot `gorm:"foreignKey:SaveID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM.
func (Save) TableName() string {
	return "saves"
}

// TagList decodes the serialized tag list. Returns nil for empty rows.
func (s *Save) TagList() []string {
	return decodeStringList(s.Tags)
}

// SetTagList serializes an ordered tag list onto the row.
func (s *Save) SetTagList(tags []string) {
	s.Tags = encodeStringList(tags)
}

// CollectionList decodes the serialized collection id list.
func (s *Save) CollectionList() []string {
	return decodeStringList(s.Collections)
}

// SetCollectionList serializes an ordered collection id list onto the row.
func (s *Save) SetCollectionList(ids []string) {
	s.Collections = encodeStringList(ids)
}

func encodeStringList(list []string) string {
	if len(list) == 0 {
		return ""
	}
	data, err := json.Marshal(list)
	if err != nil {
		return ""
	}
	return string(data)
}

func decodeStringList(raw string) []string {
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	return list
}

// SaveFilter constrains ListSaves. Nil fields mean "no constraint", not false.
type SaveFilter struct {
	IsFavorite *bool
	IsArchived *bool
	Visibility *Visibility
	Limit      int
	Offset     int
}

// FilterFavorites returns a filter matching favorite saves only.
func FilterFavorites() SaveFilter {
	fav := true
	return SaveFilter{IsFavorite: &fav}
}

// NowMillis returns the current time as epoch milliseconds, the timestamp
// unit used across save and snapshot rows.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
