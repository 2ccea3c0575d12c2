package models

// SnapshotStatus reflects the remote extraction pipeline's state for a save.
type SnapshotStatus string

const (
	SnapshotPending   SnapshotStatus = "pending"
	SnapshotReady     SnapshotStatus = "ready"
	SnapshotFailed    SnapshotStatus = "failed"
	SnapshotUnsupport SnapshotStatus = "unsupported"
)

// Snapshot is cached reader-mode content for a save. At most one row exists
// per save; deleting the owning save cascades to its snapshot.
type Snapshot struct {
	SaveID string         `gorm:"primaryKey;size:64" json:"save_id"`
	Status SnapshotStatus `gorm:"size:20;default:pending" json:"status"`

	Title     string `gorm:"size:500" json:"title,omitempty"`
	Byline    string `gorm:"size:255" json:"byline,omitempty"`
	Excerpt   string `gorm:"size:2000" json:"excerpt,omitempty"`
	WordCount int    `gorm:"default:0" json:"word_count,omitempty"`

	ContentHTML string `gorm:"type:text" json:"content_html,omitempty"`
	ContentText string `gorm:"type:text" json:"content_text,omitempty"`

	SyncedAt int64 `json:"synced_at"` // epoch ms, local write time
}

// TableName specifies the table name for GORM.
func (Snapshot) TableName() string {
	return "snapshots"
}

// HasContent reports whether any reader-mode body was captured.
func (s *Snapshot) HasContent() bool {
	return s.ContentHTML != "" || s.ContentText != ""
}
