// Package syncer pulls remote saves into the local store and image cache
// under the user's offline policy, exposing an observable state machine to
// the UI layer.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hoardlabs/hoard/internal/config"
	"github.com/hoardlabs/hoard/internal/db"
	"github.com/hoardlabs/hoard/internal/imagecache"
	"github.com/hoardlabs/hoard/internal/log"
	"github.com/hoardlabs/hoard/internal/models"
	"github.com/hoardlabs/hoard/internal/netmon"
	"github.com/hoardlabs/hoard/internal/remote"
)

// ErrSyncInProgress rejects a second concurrent sync. Callers retry after
// the in-flight run finishes; they never stack.
var ErrSyncInProgress = errors.New("sync already in progress")

// Syncer is the sync orchestrator. One instance exists per process in
// production; tests construct as many as they need.
type Syncer struct {
	db      *db.DB
	images  *imagecache.Cache
	client  remote.Client
	monitor *netmon.Monitor
	offline config.OfflineConfig

	hub      *stateHub
	inFlight atomic.Bool
}

// New builds a Syncer and rebuilds its state from the persisted watermark
// and a live connectivity probe.
func New(database *db.DB, images *imagecache.Cache, client remote.Client, monitor *netmon.Monitor, offline config.OfflineConfig) *Syncer {
	initial := models.SyncState{Status: models.SyncIdle}

	if ts, err := database.GetLastSyncedAt(); err == nil {
		initial.LastSyncedAt = ts
	}

	status := monitor.Check(context.Background())
	initial.IsOnline = status.IsOnline
	if !status.IsOnline {
		initial.Status = models.SyncOffline
	}

	s := &Syncer{
		db:      database,
		images:  images,
		client:  client,
		monitor: monitor,
		offline: offline,
		hub:     newStateHub(initial),
	}
	return s
}

// SetSyncMode changes the sync scope for subsequent runs. Callers must not
// change it while a sync is in flight.
func (s *Syncer) SetSyncMode(mode models.SyncMode) {
	s.offline.SyncMode = mode
}

// StartMonitoring launches the connectivity subscription feeding the state
// machine. Idempotent; Stop it via the monitor.
func (s *Syncer) StartMonitoring(ctx context.Context) {
	s.monitor.Start(ctx)
}

// HandleConnectivityChange is the monitor callback wiring. Exposed so the
// composition root can construct the monitor before the syncer.
func (s *Syncer) HandleConnectivityChange(status netmon.Status) {
	s.hub.SetOnline(status.IsOnline)
}

// State returns the current sync state snapshot.
func (s *Syncer) State() models.SyncState {
	return s.hub.Get()
}

// Subscribe registers a state listener. The listener is replayed the
// current state immediately, then receives every mutation until the
// returned unsubscribe function is called.
func (s *Syncer) Subscribe(listener Listener) func() {
	return s.hub.Subscribe(listener)
}

// CheckNetworkStatus probes connectivity and records the transition.
func (s *Syncer) CheckNetworkStatus(ctx context.Context) netmon.Status {
	status := s.monitor.Check(ctx)
	s.hub.SetOnline(status.IsOnline)
	return status
}

// ShouldSync is the pre-flight gate. False means the sync is skipped as a
// silent no-op: offline sync disabled, device offline, or wifiOnly set on a
// non-Wi-Fi network. It mutates nothing beyond the connectivity snapshot.
func (s *Syncer) ShouldSync(ctx context.Context) bool {
	if !s.offline.Enabled {
		return false
	}

	status := s.CheckNetworkStatus(ctx)
	if !status.IsOnline {
		return false
	}
	if s.offline.WifiOnly && !status.IsWifi {
		return false
	}
	return true
}

// SyncSaves runs one full pull-and-reconcile pass: saves, then snapshots,
// then images, then prune, then the watermark. Concurrent calls are
// rejected with ErrSyncInProgress.
func (s *Syncer) SyncSaves(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	defer s.inFlight.Store(false)

	if !s.ShouldSync(ctx) {
		return nil
	}

	s.hub.Update(func(st *models.SyncState) {
		st.Status = models.SyncSyncing
		st.Phase = models.PhaseSaves
		st.ItemsSynced = 0
		st.TotalItems = 0
		st.Error = ""
	})

	// Phase 1-2: resolve scope and write the save batch. Failures here are
	// fatal to the run and surface to the caller.
	saves, err := s.resolveScope(ctx)
	if err != nil {
		return s.abortCancelled(fmt.Errorf("resolve sync scope: %w", err))
	}
	if err := s.db.UpsertSaves(saves); err != nil {
		return s.failSync(fmt.Errorf("write save batch: %w", err))
	}
	s.hub.Update(func(st *models.SyncState) {
		st.TotalItems = len(saves)
	})
	log.Debugf("sync: upserted %d saves (mode=%s)", len(saves), s.offline.SyncMode)

	// Phase 3: snapshots, sequential, per-item failures logged and skipped.
	if err := s.syncSnapshots(ctx, saves); err != nil {
		return s.abortCancelled(err)
	}

	// Phase 4: images, batched downloads, paths written back per save.
	if err := s.syncImages(ctx, saves); err != nil {
		return s.abortCancelled(err)
	}

	// Phase 5: prune against the just-fetched scope. A narrower sync mode
	// evicts images outside its scope.
	s.pruneImages(saves)

	// Phase 6: watermark.
	now := models.NowMillis()
	if err := s.db.SetLastSyncedAt(now); err != nil {
		return s.failSync(fmt.Errorf("persist watermark: %w", err))
	}

	s.hub.Update(func(st *models.SyncState) {
		st.Status = models.SyncIdle
		st.Phase = ""
		st.LastSyncedAt = now
		st.Error = ""
	})
	return nil
}

// IncrementalSync currently performs a full pass; the remote API has no
// narrower "since" query yet.
func (s *Syncer) IncrementalSync(ctx context.Context) error {
	return s.SyncSaves(ctx)
}

// failSync records a fatal sync failure and returns the error.
func (s *Syncer) failSync(err error) error {
	log.Errorf("sync failed: %v", err)
	s.hub.Update(func(st *models.SyncState) {
		st.Status = models.SyncError
		st.Phase = ""
		st.Error = err.Error()
	})
	return err
}

// abortCancelled winds down a cancelled run. The store is left in a valid,
// partially-updated state; the status returns to idle with no error.
func (s *Syncer) abortCancelled(err error) error {
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return s.failSync(err)
	}
	log.Printf("sync cancelled\n")
	s.hub.Update(func(st *models.SyncState) {
		st.Status = models.SyncIdle
		st.Phase = ""
	})
	return err
}

// resolveScope fetches the remote saves selected by the sync mode.
func (s *Syncer) resolveScope(ctx context.Context) ([]models.Save, error) {
	switch s.offline.SyncMode {
	case models.SyncModeFavorites:
		fav := true
		return s.fetchAll(ctx, remote.ListFilter{IsFavorite: &fav})

	case models.SyncModeRecent:
		saves, err := s.fetchAll(ctx, remote.ListFilter{})
		if err != nil {
			return nil, err
		}
		cutoff := time.Now().AddDate(0, 0, -s.offline.RecentDays).UnixMilli()
		recent := saves[:0]
		for _, save := range saves {
			if save.SavedAt >= cutoff {
				recent = append(recent, save)
			}
		}
		return recent, nil

	case models.SyncModeCollections:
		seen := make(map[string]bool)
		var union []models.Save
		for _, collectionID := range s.offline.Collections {
			saves, err := s.fetchAll(ctx, remote.ListFilter{CollectionID: collectionID})
			if err != nil {
				return nil, err
			}
			for _, save := range saves {
				if seen[save.ID] {
					continue
				}
				seen[save.ID] = true
				union = append(union, save)
			}
		}
		return union, nil

	default: // SyncModeAll
		return s.fetchAll(ctx, remote.ListFilter{})
	}
}

// fetchAll pages through ListSaves until the cursor runs out.
func (s *Syncer) fetchAll(ctx context.Context, filter remote.ListFilter) ([]models.Save, error) {
	filter.Limit = s.offline.PageSize

	var saves []models.Save
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := s.client.ListSaves(ctx, filter)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			saves = append(saves, item.ToModel())
		}
		if page.NextCursor == "" {
			return saves, nil
		}
		filter.Cursor = page.NextCursor
	}
}

// syncSnapshots fetches and stores reader content for each save. A failed
// item never aborts the rest; storage faults do.
func (s *Syncer) syncSnapshots(ctx context.Context, saves []models.Save) error {
	s.hub.Update(func(st *models.SyncState) {
		st.Phase = models.PhaseSnapshots
	})

	for _, save := range saves {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := s.client.GetSnapshot(ctx, save.ID, true)
		if err != nil {
			log.Errorf("sync: snapshot for save %s: %v", save.ID, err)
			continue
		}
		if result != nil {
			snapshot := result.ToModel()
			snapshot.SaveID = save.ID
			if err := s.db.UpsertSnapshot(&snapshot); err != nil {
				// Local persistence faults are fatal to the run, unlike
				// remote per-item failures.
				return err
			}
		}

		s.hub.Update(func(st *models.SyncState) {
			st.ItemsSynced++
		})
	}
	return nil
}

// syncImages downloads preview images in bounded batches and writes the
// resulting local paths back onto their save rows.
func (s *Syncer) syncImages(ctx context.Context, saves []models.Save) error {
	s.hub.Update(func(st *models.SyncState) {
		st.Phase = models.PhaseImages
	})

	var reqs []imagecache.Request
	urlBySave := make(map[string]string)
	for _, save := range saves {
		if save.ImageURL == "" {
			continue
		}
		reqs = append(reqs, imagecache.Request{SaveID: save.ID, URL: save.ImageURL})
		urlBySave[save.ID] = save.ImageURL
	}
	if len(reqs) == 0 {
		return ctx.Err()
	}

	results := s.images.CacheImages(ctx, reqs, func(current, total int) {
		log.Debugf("sync: images %d/%d", current, total)
	})

	for saveID, path := range results {
		if path == "" {
			continue
		}
		if err := s.db.UpdateLocalImagePath(saveID, path); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// pruneImages evicts cached images outside the just-fetched scope and
// clears the image path on their rows so nothing references a deleted file.
func (s *Syncer) pruneImages(saves []models.Save) {
	s.hub.Update(func(st *models.SyncState) {
		st.Phase = models.PhasePrune
	})

	active := make(map[string]bool, len(saves))
	for _, save := range saves {
		active[save.ID] = true
	}

	pruned, err := s.images.PruneOrphaned(active)
	if err != nil {
		log.Errorf("sync: prune images: %v", err)
		return
	}
	if len(pruned) == 0 {
		return
	}
	log.Debugf("sync: pruned %d orphaned images", len(pruned))
	if err := s.db.ClearLocalImagePaths(pruned); err != nil {
		log.Errorf("sync: clear pruned image paths: %v", err)
	}
}
