package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoardlabs/hoard/internal/config"
	"github.com/hoardlabs/hoard/internal/db"
	"github.com/hoardlabs/hoard/internal/imagecache"
	"github.com/hoardlabs/hoard/internal/models"
	"github.com/hoardlabs/hoard/internal/netmon"
	"github.com/hoardlabs/hoard/internal/remote"
)

// stubProber reports a fixed connectivity status.
type stubProber struct {
	status netmon.Status
}

func (p *stubProber) Probe(ctx context.Context) netmon.Status {
	return p.status
}

// stubDownloader writes a file named after the URL basename, like the real
// download primitive.
type stubDownloader struct {
	mu    sync.Mutex
	calls int
}

func (d *stubDownloader) Download(ctx context.Context, rawURL, dir string) (string, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()

	dest := filepath.Join(dir, filepath.Base(rawURL))
	if err := os.WriteFile(dest, []byte("img:"+rawURL), 0644); err != nil {
		return "", err
	}
	return dest, nil
}

// fakeRemote is a scriptable remote.Client double.
type fakeRemote struct {
	mu            sync.Mutex
	saves         []remote.RemoteSave
	snapshots     map[string]*remote.SnapshotResult
	failSnapshots map[string]bool
	failList      bool
	snapshotHook  func() // invoked at the top of GetSnapshot
	pageLimit     int    // 0 = everything in one page
	listCalls     int
	snapshotCalls int
	listGate      chan struct{} // when set, ListSaves blocks until closed
}

func newFakeRemote(saves ...remote.RemoteSave) *fakeRemote {
	snapshots := make(map[string]*remote.SnapshotResult, len(saves))
	for _, save := range saves {
		snapshots[save.ID] = &remote.SnapshotResult{
			Snapshot: remote.RemoteSnapshot{
				SaveID: save.ID,
				Status: "ready",
				Title:  save.Title,
			},
			Content: &remote.RemoteContent{Text: "content for " + save.ID},
		}
	}
	return &fakeRemote{
		saves:         saves,
		snapshots:     snapshots,
		failSnapshots: make(map[string]bool),
	}
}

func (f *fakeRemote) ListSaves(ctx context.Context, filter remote.ListFilter) (*remote.SaveList, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.listGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failList {
		return nil, fmt.Errorf("%w: list saves unavailable", remote.ErrNetwork)
	}

	var matched []remote.RemoteSave
	for _, save := range f.saves {
		if filter.IsFavorite != nil && save.IsFavorite != *filter.IsFavorite {
			continue
		}
		if filter.CollectionID != "" && !contains(save.Collections, filter.CollectionID) {
			continue
		}
		matched = append(matched, save)
	}

	offset := 0
	if filter.Cursor != "" {
		_, _ = fmt.Sscanf(filter.Cursor, "%d", &offset)
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	page := matched[offset:]

	next := ""
	if f.pageLimit > 0 && len(page) > f.pageLimit {
		page = page[:f.pageLimit]
		next = fmt.Sprintf("%d", offset+f.pageLimit)
	}

	return &remote.SaveList{Items: page, NextCursor: next}, nil
}

func (f *fakeRemote) GetSnapshot(ctx context.Context, saveID string, includeContent bool) (*remote.SnapshotResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshotCalls++

	if f.snapshotHook != nil {
		f.snapshotHook()
	}
	if f.failSnapshots[saveID] {
		return nil, fmt.Errorf("%w: snapshot fetch failed for %s", remote.ErrNetwork, saveID)
	}
	return f.snapshots[saveID], nil
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func remoteSave(id string, imageURL string, favorite bool) remote.RemoteSave {
	return remote.RemoteSave{
		ID:         id,
		SpaceID:    "space-1",
		URL:        "https://example.com/" + id,
		Title:      "Save " + id,
		ImageURL:   imageURL,
		Visibility: "private",
		IsFavorite: favorite,
		SavedAt:    models.NowMillis(),
	}
}

type fixture struct {
	syncer *Syncer
	db     *db.DB
	images *imagecache.Cache
	remote *fakeRemote
	dl     *stubDownloader
}

func newFixture(t *testing.T, client *fakeRemote, status netmon.Status, mutate func(*config.OfflineConfig)) *fixture {
	t.Helper()

	database, err := db.New(db.DefaultConfig(filepath.Join(t.TempDir(), "hoard.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	dl := &stubDownloader{}
	images, err := imagecache.New(filepath.Join(t.TempDir(), "images"), dl)
	require.NoError(t, err)

	offline := config.DefaultConfig().Offline
	if mutate != nil {
		mutate(&offline)
	}

	monitor := netmon.New(&stubProber{status: status}, time.Hour, nil)
	s := New(database, images, client, monitor, offline)

	return &fixture{syncer: s, db: database, images: images, remote: client, dl: dl}
}

func TestSyncSaves_FullSync(t *testing.T) {
	client := newFakeRemote(
		remoteSave("s1", "https://site.com/og-image.png", false),
		remoteSave("s2", "https://cdn.example/pic.jpg", false),
		remoteSave("s3", "", false),
	)
	f := newFixture(t, client, netmon.Status{IsOnline: true, IsWifi: true}, nil)

	before := models.NowMillis()
	require.NoError(t, f.syncer.SyncSaves(context.Background()))

	count, err := f.db.CountSaves()
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	snapshots, err := f.db.CountSnapshots()
	require.NoError(t, err)
	assert.EqualValues(t, 3, snapshots)

	imageCount, err := f.images.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, imageCount)

	// Image paths written back onto their rows.
	s1, err := f.db.GetSave("s1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.images.Dir(), "s1.png"), s1.LocalImagePath)

	s3, err := f.db.GetSave("s3")
	require.NoError(t, err)
	assert.Empty(t, s3.LocalImagePath)

	available, err := f.syncer.IsSaveAvailableOffline("s1")
	require.NoError(t, err)
	assert.True(t, available)
	available, err = f.syncer.IsSaveAvailableOffline("missing")
	require.NoError(t, err)
	assert.False(t, available)

	ts, err := f.db.GetLastSyncedAt()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ts, before)

	state := f.syncer.State()
	assert.Equal(t, models.SyncIdle, state.Status)
	assert.Empty(t, state.Error)
	assert.Equal(t, ts, state.LastSyncedAt)
	assert.Equal(t, 3, state.ItemsSynced)
	assert.Equal(t, 3, state.TotalItems)
}

func TestSyncSaves_OfflineGate(t *testing.T) {
	client := newFakeRemote(remoteSave("s1", "", false))
	f := newFixture(t, client, netmon.Status{IsOnline: false}, nil)

	require.NoError(t, f.syncer.SyncSaves(context.Background()))

	assert.Zero(t, client.listCalls, "offline sync must not contact the remote API")
	state := f.syncer.State()
	assert.Zero(t, state.TotalItems)
	assert.Zero(t, state.ItemsSynced)
	assert.Equal(t, models.SyncOffline, state.Status)
}

func TestSyncSaves_DisabledGate(t *testing.T) {
	client := newFakeRemote(remoteSave("s1", "", false))
	f := newFixture(t, client, netmon.Status{IsOnline: true, IsWifi: true}, func(c *config.OfflineConfig) {
		c.Enabled = false
	})

	require.NoError(t, f.syncer.SyncSaves(context.Background()))
	assert.Zero(t, client.listCalls)
}

func TestSyncSaves_WifiOnlyGate(t *testing.T) {
	client := newFakeRemote(remoteSave("s1", "", false))
	f := newFixture(t, client, netmon.Status{IsOnline: true, IsWifi: false}, func(c *config.OfflineConfig) {
		c.WifiOnly = true
	})

	require.NoError(t, f.syncer.SyncSaves(context.Background()))
	assert.Zero(t, client.listCalls, "wifiOnly gate must skip cellular networks")
}

func TestSyncSaves_PerItemSnapshotTolerance(t *testing.T) {
	client := newFakeRemote(
		remoteSave("s1", "", false),
		remoteSave("s2", "", false),
		remoteSave("s3", "", false),
	)
	client.failSnapshots["s2"] = true

	f := newFixture(t, client, netmon.Status{IsOnline: true, IsWifi: true}, nil)
	require.NoError(t, f.syncer.SyncSaves(context.Background()), "one bad snapshot must not fail the sync")

	snapshots, err := f.db.CountSnapshots()
	require.NoError(t, err)
	assert.EqualValues(t, 2, snapshots)

	state := f.syncer.State()
	assert.Equal(t, models.SyncIdle, state.Status)
	assert.Empty(t, state.Error)
}

func TestSyncSaves_ListFailureIsFatal(t *testing.T) {
	client := newFakeRemote(remoteSave("s1", "", false))
	client.failList = true

	f := newFixture(t, client, netmon.Status{IsOnline: true, IsWifi: true}, nil)
	err := f.syncer.SyncSaves(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, remote.ErrNetwork))

	state := f.syncer.State()
	assert.Equal(t, models.SyncError, state.Status)
	assert.NotEmpty(t, state.Error)
}

func TestSyncSaves_ScopeNarrowingPrunes(t *testing.T) {
	client := newFakeRemote(
		remoteSave("fav1", "https://site.com/a.jpg", true),
		remoteSave("reg1", "https://site.com/b.png", false),
		remoteSave("reg2", "https://site.com/c.gif", false),
	)

	f := newFixture(t, client, netmon.Status{IsOnline: true, IsWifi: true}, nil)
	require.NoError(t, f.syncer.SyncSaves(context.Background()))

	imageCount, _ := f.images.Count()
	require.Equal(t, 3, imageCount)

	// Narrow the scope to favorites; a second engine over the same stores
	// mirrors a settings change.
	offline := config.DefaultConfig().Offline
	offline.SyncMode = models.SyncModeFavorites
	monitor := netmon.New(&stubProber{status: netmon.Status{IsOnline: true, IsWifi: true}}, time.Hour, nil)
	narrow := New(f.db, f.images, client, monitor, offline)
	require.NoError(t, narrow.SyncSaves(context.Background()))

	imageCount, _ = f.images.Count()
	assert.Equal(t, 1, imageCount, "images outside the narrowed scope are evicted")
	assert.True(t, f.images.IsCached("fav1", "https://site.com/a.jpg"))

	// Rows whose images were pruned no longer reference deleted files.
	reg1, err := f.db.GetSave("reg1")
	require.NoError(t, err)
	assert.Empty(t, reg1.LocalImagePath)
}

func TestSyncSaves_SingleFlight(t *testing.T) {
	client := newFakeRemote(remoteSave("s1", "", false))
	client.listGate = make(chan struct{})

	f := newFixture(t, client, netmon.Status{IsOnline: true, IsWifi: true}, nil)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- f.syncer.SyncSaves(context.Background())
	}()

	// Wait for the first run to reach the blocked remote call.
	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.listCalls > 0
	}, time.Second, time.Millisecond)

	err := f.syncer.SyncSaves(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(client.listGate)
	require.NoError(t, <-firstDone)

	// After the in-flight run finishes the guard releases.
	client.mu.Lock()
	client.listGate = nil
	client.mu.Unlock()
	assert.NoError(t, f.syncer.SyncSaves(context.Background()))
}

func TestSyncSaves_Cancellation(t *testing.T) {
	client := newFakeRemote(
		remoteSave("s1", "", false),
		remoteSave("s2", "", false),
	)
	f := newFixture(t, client, netmon.Status{IsOnline: true, IsWifi: true}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel once the first snapshot fetch is reached: the save batch has
	// already landed, and the loop observes cancellation on the next item.
	client.snapshotHook = cancel

	err := f.syncer.SyncSaves(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	state := f.syncer.State()
	assert.Equal(t, models.SyncIdle, state.Status, "cancelled run returns to idle, not error")
	assert.Empty(t, state.Error)

	// Partial state is valid: saves persisted, watermark untouched.
	count, _ := f.db.CountSaves()
	assert.EqualValues(t, 2, count)
	ts, _ := f.db.GetLastSyncedAt()
	assert.Zero(t, ts)
}

func TestSyncSaves_RecentMode(t *testing.T) {
	old := remoteSave("old1", "", false)
	old.SavedAt = time.Now().AddDate(0, 0, -90).UnixMilli()
	fresh := remoteSave("new1", "", false)

	client := newFakeRemote(old, fresh)
	f := newFixture(t, client, netmon.Status{IsOnline: true, IsWifi: true}, func(c *config.OfflineConfig) {
		c.SyncMode = models.SyncModeRecent
		c.RecentDays = 30
	})

	require.NoError(t, f.syncer.SyncSaves(context.Background()))

	count, _ := f.db.CountSaves()
	assert.EqualValues(t, 1, count, "recent mode trims client-side by savedAt")

	got, _ := f.db.GetSave("new1")
	assert.NotNil(t, got)
}

func TestSyncSaves_CollectionsMode(t *testing.T) {
	inBoth := remoteSave("both", "", false)
	inBoth.Collections = []string{"col-1", "col-2"}
	onlyOne := remoteSave("one", "", false)
	onlyOne.Collections = []string{"col-1"}
	outside := remoteSave("out", "", false)
	outside.Collections = []string{"col-9"}

	client := newFakeRemote(inBoth, onlyOne, outside)
	f := newFixture(t, client, netmon.Status{IsOnline: true, IsWifi: true}, func(c *config.OfflineConfig) {
		c.SyncMode = models.SyncModeCollections
		c.Collections = []string{"col-1", "col-2"}
	})

	require.NoError(t, f.syncer.SyncSaves(context.Background()))

	count, _ := f.db.CountSaves()
	assert.EqualValues(t, 2, count, "union of selected collections, de-duplicated by id")
}

func TestSyncSaves_Pagination(t *testing.T) {
	client := newFakeRemote(
		remoteSave("p1", "", false),
		remoteSave("p2", "", false),
		remoteSave("p3", "", false),
		remoteSave("p4", "", false),
		remoteSave("p5", "", false),
	)
	client.pageLimit = 2

	f := newFixture(t, client, netmon.Status{IsOnline: true, IsWifi: true}, nil)
	require.NoError(t, f.syncer.SyncSaves(context.Background()))

	count, _ := f.db.CountSaves()
	assert.EqualValues(t, 5, count)
	assert.GreaterOrEqual(t, client.listCalls, 3, "cursor pages are followed to the end")
}

func TestIncrementalSync_DelegatesToFull(t *testing.T) {
	client := newFakeRemote(remoteSave("s1", "", false))
	f := newFixture(t, client, netmon.Status{IsOnline: true, IsWifi: true}, nil)

	require.NoError(t, f.syncer.IncrementalSync(context.Background()))
	count, _ := f.db.CountSaves()
	assert.EqualValues(t, 1, count)
}

func TestSubscribe_ReplayAndUnsubscribe(t *testing.T) {
	client := newFakeRemote(remoteSave("s1", "", false))
	f := newFixture(t, client, netmon.Status{IsOnline: true, IsWifi: true}, nil)

	var mu sync.Mutex
	var seen []models.SyncState
	unsubscribe := f.syncer.Subscribe(func(state models.SyncState) {
		mu.Lock()
		seen = append(seen, state)
		mu.Unlock()
	})

	mu.Lock()
	require.Len(t, seen, 1, "current state replayed on subscribe")
	assert.Equal(t, models.SyncIdle, seen[0].Status)
	mu.Unlock()

	require.NoError(t, f.syncer.SyncSaves(context.Background()))

	mu.Lock()
	countAfterSync := len(seen)
	mu.Unlock()
	assert.Greater(t, countAfterSync, 1, "listener observed sync mutations")

	unsubscribe()
	require.NoError(t, f.syncer.ClearAllOfflineData())

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, countAfterSync, "unsubscribed listener no longer notified")
}

func TestSyncState_RebuiltAtStartup(t *testing.T) {
	client := newFakeRemote(remoteSave("s1", "", false))
	f := newFixture(t, client, netmon.Status{IsOnline: true, IsWifi: true}, nil)

	require.NoError(t, f.syncer.SyncSaves(context.Background()))
	ts, _ := f.db.GetLastSyncedAt()
	require.NotZero(t, ts)

	// A fresh engine over the same store rebuilds from the watermark.
	monitor := netmon.New(&stubProber{status: netmon.Status{IsOnline: false}}, time.Hour, nil)
	rebuilt := New(f.db, f.images, client, monitor, config.DefaultConfig().Offline)

	state := rebuilt.State()
	assert.Equal(t, ts, state.LastSyncedAt)
	assert.False(t, state.IsOnline)
	assert.Equal(t, models.SyncOffline, state.Status)
}

func TestConnectivityTransitions(t *testing.T) {
	client := newFakeRemote()
	f := newFixture(t, client, netmon.Status{IsOnline: true, IsWifi: true}, nil)

	f.syncer.HandleConnectivityChange(netmon.Status{IsOnline: false})
	assert.Equal(t, models.SyncOffline, f.syncer.State().Status)
	assert.False(t, f.syncer.State().IsOnline)

	f.syncer.HandleConnectivityChange(netmon.Status{IsOnline: true, IsWifi: true})
	assert.Equal(t, models.SyncIdle, f.syncer.State().Status)
	assert.True(t, f.syncer.State().IsOnline)
}
