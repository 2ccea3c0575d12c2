// Package remote talks to Hoard's query/mutation API. The sync engine is
// its only consumer; offline-capable views never touch it directly.
package remote

import (
	"context"
	"errors"

	"github.com/hoardlabs/hoard/internal/models"
)

// ErrNetwork marks remote call failures. Fatal during the save-list fetch,
// tolerated per item during snapshot and image phases.
var ErrNetwork = errors.New("network error")

// ListFilter constrains a ListSaves call.
type ListFilter struct {
	IsFavorite   *bool
	CollectionID string
	Limit        int
	Cursor       string
}

// RemoteSave is a save record as the API returns it.
type RemoteSave struct {
	ID          string   `json:"id"`
	SpaceID     string   `json:"spaceId"`
	URL         string   `json:"url"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Note        string   `json:"note,omitempty"`
	SiteName    string   `json:"siteName,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Visibility  string   `json:"visibility"`
	IsArchived  bool     `json:"isArchived"`
	IsFavorite  bool     `json:"isFavorite"`
	Tags        []string `json:"tags,omitempty"`
	Collections []string `json:"collections,omitempty"`
	SavedAt     int64    `json:"savedAt"` // epoch ms
}

// SaveList is one page of ListSaves results.
type SaveList struct {
	Items      []RemoteSave `json:"items"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

// RemoteSnapshot is reader-mode metadata as the API returns it.
type RemoteSnapshot struct {
	SaveID    string `json:"saveId"`
	Status    string `json:"status"`
	Title     string `json:"title,omitempty"`
	Byline    string `json:"byline,omitempty"`
	Excerpt   string `json:"excerpt,omitempty"`
	WordCount int    `json:"wordCount,omitempty"`
}

// RemoteContent is the snapshot body, present when requested.
type RemoteContent struct {
	HTML string `json:"html,omitempty"`
	Text string `json:"text,omitempty"`
}

// SnapshotResult pairs a snapshot with its optional content.
type SnapshotResult struct {
	Snapshot RemoteSnapshot `json:"snapshot"`
	Content  *RemoteContent `json:"content,omitempty"`
}

// Client is the remote API surface the sync engine consumes.
type Client interface {
	// ListSaves returns one page of saves matching the filter.
	ListSaves(ctx context.Context, filter ListFilter) (*SaveList, error)

	// GetSnapshot returns the snapshot for a save, with content when
	// includeContent is set. Returns (nil, nil) when the save has none.
	GetSnapshot(ctx context.Context, saveID string, includeContent bool) (*SnapshotResult, error)
}

// ToModel converts a remote save to its local row shape.
func (r RemoteSave) ToModel() models.Save {
	save := models.Save{
		ID:          r.ID,
		SpaceID:     r.SpaceID,
		URL:         r.URL,
		Title:       r.Title,
		Description: r.Description,
		Note:        r.Note,
		SiteName:    r.SiteName,
		ImageURL:    r.ImageURL,
		Visibility:  models.Visibility(r.Visibility),
		IsArchived:  r.IsArchived,
		IsFavorite:  r.IsFavorite,
		SavedAt:     r.SavedAt,
	}
	if save.Visibility != models.VisibilityPublic {
		save.Visibility = models.VisibilityPrivate
	}
	save.SetTagList(r.Tags)
	save.SetCollectionList(r.Collections)
	return save
}

// ToModel converts a snapshot result to its local row shape.
func (sr *SnapshotResult) ToModel() models.Snapshot {
	snapshot := models.Snapshot{
		SaveID:    sr.Snapshot.SaveID,
		Status:    models.SnapshotStatus(sr.Snapshot.Status),
		Title:     sr.Snapshot.Title,
		Byline:    sr.Snapshot.Byline,
		Excerpt:   sr.Snapshot.Excerpt,
		WordCount: sr.Snapshot.WordCount,
	}
	if snapshot.Status == "" {
		snapshot.Status = models.SnapshotPending
	}
	if sr.Content != nil {
		snapshot.ContentHTML = sr.Content.HTML
		snapshot.ContentText = sr.Content.Text
	}
	return snapshot
}
