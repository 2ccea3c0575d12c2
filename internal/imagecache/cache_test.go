package imagecache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDownloader mimics the native-naming download primitive: it writes a
// file named after the URL basename into dir. It records concurrency so
// tests can assert the batching bound.
type fakeDownloader struct {
	mu            sync.Mutex
	calls         int
	inFlight      int
	maxInFlight   int
	delay         time.Duration
	failURLs      map[string]bool
	contentByName map[string]string
}

func newFakeDownloader() *fakeDownloader {
	return &fakeDownloader{failURLs: make(map[string]bool)}
}

func (f *fakeDownloader) Download(ctx context.Context, rawURL, dir string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	fail := f.failURLs[rawURL]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if fail {
		return "", fmt.Errorf("simulated network failure for %s", rawURL)
	}

	dest := filepath.Join(dir, baseName(rawURL))
	content := "image-bytes:" + rawURL
	if f.contentByName != nil {
		if c, ok := f.contentByName[baseName(rawURL)]; ok {
			content = c
		}
	}
	if err := os.WriteFile(dest, []byte(content), 0644); err != nil {
		return "", err
	}
	return dest, nil
}

func testCache(t *testing.T) (*Cache, *fakeDownloader) {
	t.Helper()
	dl := newFakeDownloader()
	cache, err := New(filepath.Join(t.TempDir(), "images"), dl)
	require.NoError(t, err)
	return cache, dl
}

func TestExtFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://site.com/og-image.png?x=1", "png"},
		{"https://site.com/photo.JPEG", "jpeg"},
		{"https://site.com/anim.gif", "gif"},
		{"https://site.com/pic.webp", "webp"},
		{"https://site.com/pic.svg", "jpg"}, // not in allow-list
		{"https://site.com/no-extension", "jpg"},
		{"https://site.com/", "jpg"},
		{"::not-a-url::", "jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtFromURL(tt.url))
		})
	}
}

func TestCacheImage_CanonicalNaming(t *testing.T) {
	cache, _ := testCache(t)

	// A stray file at the URL's native basename must not survive into the
	// result.
	stray := filepath.Join(cache.Dir(), "og-image.png")
	require.NoError(t, os.WriteFile(stray, []byte("stale"), 0644))

	path := cache.CacheImage(context.Background(), "abc123", "https://site.com/og-image.png?x=1")
	require.NotEmpty(t, path)

	assert.Equal(t, filepath.Join(cache.Dir(), "abc123.png"), path)
	assert.FileExists(t, path)
	assert.NoFileExists(t, stray, "native-name file should have been renamed away")
}

func TestCacheImage_NoopWhenCached(t *testing.T) {
	cache, dl := testCache(t)
	ctx := context.Background()

	first := cache.CacheImage(ctx, "abc123", "https://site.com/a.jpg")
	require.NotEmpty(t, first)
	second := cache.CacheImage(ctx, "abc123", "https://site.com/a.jpg")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, dl.calls, "second call must not touch the network")
}

func TestCacheImage_FailureReturnsEmpty(t *testing.T) {
	cache, dl := testCache(t)
	dl.failURLs["https://site.com/broken.jpg"] = true

	path := cache.CacheImage(context.Background(), "abc123", "https://site.com/broken.jpg")
	assert.Empty(t, path)

	count, err := cache.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCacheImage_MissingInputs(t *testing.T) {
	cache, dl := testCache(t)

	assert.Empty(t, cache.CacheImage(context.Background(), "", "https://site.com/a.jpg"))
	assert.Empty(t, cache.CacheImage(context.Background(), "abc123", ""))
	assert.Zero(t, dl.calls)
}

func TestCacheImage_SharedBasenameCollision(t *testing.T) {
	cache, dl := testCache(t)
	ctx := context.Background()

	// Two unrelated saves whose sites both serve og-image.png.
	dl.contentByName = map[string]string{"og-image.png": ""}
	dl.contentByName["og-image.png"] = "first"
	p1 := cache.CacheImage(ctx, "save-a", "https://one.example/og-image.png")
	dl.contentByName["og-image.png"] = "second"
	p2 := cache.CacheImage(ctx, "save-b", "https://two.example/og-image.png")

	require.NotEmpty(t, p1)
	require.NotEmpty(t, p2)

	b1, err := os.ReadFile(p1)
	require.NoError(t, err)
	b2, err := os.ReadFile(p2)
	require.NoError(t, err)
	assert.Equal(t, "first", string(b1))
	assert.Equal(t, "second", string(b2))
}

func TestCacheImages_ConcurrencyBound(t *testing.T) {
	cache, dl := testCache(t)
	dl.delay = 20 * time.Millisecond

	reqs := make([]Request, 12)
	for i := range reqs {
		reqs[i] = Request{
			SaveID: fmt.Sprintf("save-%02d", i),
			URL:    fmt.Sprintf("https://site.com/img-%02d.jpg", i),
		}
	}

	var progressMu sync.Mutex
	var progress []int
	results := cache.CacheImages(context.Background(), reqs, func(current, total int) {
		progressMu.Lock()
		progress = append(progress, current)
		progressMu.Unlock()
		assert.Equal(t, 12, total)
	})

	assert.Len(t, results, 12)
	assert.Equal(t, 12, dl.calls)
	assert.LessOrEqual(t, dl.maxInFlight, BatchSize, "downloads must run in groups no larger than %d", BatchSize)
	assert.Len(t, progress, 12, "progress reported per item, not per batch")
	assert.Equal(t, 12, progress[len(progress)-1])
}

func TestCacheImages_PartialFailures(t *testing.T) {
	cache, dl := testCache(t)
	dl.failURLs["https://site.com/bad.jpg"] = true

	results := cache.CacheImages(context.Background(), []Request{
		{SaveID: "ok1", URL: "https://site.com/ok1.jpg"},
		{SaveID: "bad", URL: "https://site.com/bad.jpg"},
		{SaveID: "ok2", URL: "https://site.com/ok2.jpg"},
	}, nil)

	assert.NotEmpty(t, results["ok1"])
	assert.Empty(t, results["bad"])
	assert.NotEmpty(t, results["ok2"])
}

func TestCacheImages_CancelledContext(t *testing.T) {
	cache, dl := testCache(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := cache.CacheImages(ctx, []Request{
		{SaveID: "a", URL: "https://site.com/a.jpg"},
	}, nil)

	assert.Empty(t, results)
	assert.Zero(t, dl.calls)
}

func TestPruneOrphaned(t *testing.T) {
	cache, _ := testCache(t)
	ctx := context.Background()

	cache.CacheImage(ctx, "abc123", "https://site.com/a.jpg")
	cache.CacheImage(ctx, "xyz789", "https://site.com/b.png")

	pruned, err := cache.PruneOrphaned(map[string]bool{"abc123": true})
	require.NoError(t, err)

	assert.Equal(t, []string{"xyz789"}, pruned)
	assert.True(t, cache.IsCached("abc123", "https://site.com/a.jpg"))
	assert.False(t, cache.IsCached("xyz789", "https://site.com/b.png"))
}

func TestPruneOrphaned_NothingToPrune(t *testing.T) {
	cache, _ := testCache(t)

	cache.CacheImage(context.Background(), "abc123", "https://site.com/a.jpg")

	pruned, err := cache.PruneOrphaned(map[string]bool{"abc123": true})
	require.NoError(t, err)
	assert.Empty(t, pruned)
}

func TestImageURI(t *testing.T) {
	cache, _ := testCache(t)
	ctx := context.Background()

	// No URL at all.
	assert.Empty(t, cache.ImageURI("abc123", ""))

	// Not cached: remote URL passes through unchanged.
	remote := "https://site.com/a.jpg"
	assert.Equal(t, remote, cache.ImageURI("abc123", remote))

	// Cached: local file URI.
	path := cache.CacheImage(ctx, "abc123", remote)
	require.NotEmpty(t, path)
	assert.Equal(t, "file://"+path, cache.ImageURI("abc123", remote))
}

func TestDeleteCachedImage(t *testing.T) {
	cache, _ := testCache(t)
	ctx := context.Background()

	cache.CacheImage(ctx, "abc123", "https://site.com/a.jpg")
	require.True(t, cache.IsCached("abc123", "https://site.com/a.jpg"))

	require.NoError(t, cache.DeleteCachedImage("abc123", "https://site.com/a.jpg"))
	assert.False(t, cache.IsCached("abc123", "https://site.com/a.jpg"))

	// Deleting a missing file is not an error.
	assert.NoError(t, cache.DeleteCachedImage("abc123", "https://site.com/a.jpg"))
}

func TestClearSizeCount(t *testing.T) {
	cache, _ := testCache(t)
	ctx := context.Background()

	cache.CacheImage(ctx, "a1", "https://site.com/a.jpg")
	cache.CacheImage(ctx, "b2", "https://site.com/b.png")

	count, err := cache.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	size, err := cache.Size()
	require.NoError(t, err)
	assert.Positive(t, size)

	require.NoError(t, cache.Clear())

	count, err = cache.Count()
	require.NoError(t, err)
	assert.Zero(t, count)

	// Directory was recreated, cache remains usable.
	path := cache.CacheImage(ctx, "c3", "https://site.com/c.gif")
	assert.NotEmpty(t, path)
}
