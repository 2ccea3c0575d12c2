// Package imagecache maintains a content-addressed file cache of save
// preview images. Files are named {saveID}.{ext} so the mapping from save to
// file is computed, never stored.
package imagecache

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hoardlabs/hoard/internal/log"
)

// allowedExts is the extension allow-list for cached image files.
var allowedExts = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
}

// DefaultExt is used when the source URL's extension is absent or
// unrecognized.
const DefaultExt = "jpg"

// BatchSize is the number of concurrent downloads per batch. This is a
// deliberate backpressure bound for constrained mobile networks, not a
// tuning knob.
const BatchSize = 5

// Request pairs a save id with its remote image URL.
type Request struct {
	SaveID string
	URL    string
}

// ProgressFunc receives (completed, total) after each finished item.
type ProgressFunc func(current, total int)

// Cache is a content-addressed image cache rooted at a single directory.
type Cache struct {
	dir string
	dl  Downloader

	// nameLocks serializes downloads sharing a native basename (the
	// collision window of the download primitive). Unrelated downloads
	// proceed concurrently.
	mu        sync.Mutex
	nameLocks map[string]*sync.Mutex
}

// New creates a cache rooted at dir, creating the directory if needed.
func New(dir string, dl Downloader) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create image cache directory: %w", err)
	}
	if dl == nil {
		dl = NewHTTPDownloader(nil)
	}
	return &Cache{dir: dir, dl: dl, nameLocks: make(map[string]*sync.Mutex)}, nil
}

// lockName acquires the per-basename lock, returning its unlock func.
func (c *Cache) lockName(name string) func() {
	c.mu.Lock()
	m, ok := c.nameLocks[name]
	if !ok {
		m = &sync.Mutex{}
		c.nameLocks[name] = m
	}
	c.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// ExtFromURL derives the cached file extension from a remote image URL.
// Query strings and fragments are ignored; unrecognized extensions fall back
// to DefaultExt.
func ExtFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return DefaultExt
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(u.Path)), ".")
	if !allowedExts[ext] {
		return DefaultExt
	}
	return ext
}

// FileName returns the canonical cache file name for a save.
func FileName(saveID, rawURL string) string {
	return saveID + "." + ExtFromURL(rawURL)
}

// path returns the canonical absolute path for a save's cached image.
func (c *Cache) path(saveID, rawURL string) string {
	return filepath.Join(c.dir, FileName(saveID, rawURL))
}

// CacheImage downloads the image for a save into the cache and returns the
// local path. Returns the existing path without touching the network if the
// canonical file is already present. Returns "" and logs on any failure; it
// never returns an error to the caller.
func (c *Cache) CacheImage(ctx context.Context, saveID, rawURL string) string {
	if saveID == "" || rawURL == "" {
		return ""
	}

	target := c.path(saveID, rawURL)
	if _, err := os.Stat(target); err == nil {
		return target
	}

	unlock := c.lockName(baseName(rawURL))
	defer unlock()

	// The download primitive names its output after the URL's own basename
	// (think og-image.png), which collides across unrelated saves. Clear any
	// stray file at that native name before downloading.
	if native := c.nativePath(rawURL); native != "" && native != target {
		if err := os.Remove(native); err != nil && !os.IsNotExist(err) {
			log.Errorf("image cache: remove stray %s: %v", filepath.Base(native), err)
			return ""
		}
	}

	downloaded, err := c.dl.Download(ctx, rawURL, c.dir)
	if err != nil {
		log.Errorf("image cache: download %s for save %s: %v", rawURL, saveID, err)
		return ""
	}

	if downloaded != target {
		// Second race window: a file may already sit at the canonical name.
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			log.Errorf("image cache: clear target %s: %v", filepath.Base(target), err)
			return ""
		}
		if err := os.Rename(downloaded, target); err != nil {
			log.Errorf("image cache: rename %s -> %s: %v", filepath.Base(downloaded), filepath.Base(target), err)
			return ""
		}
	}

	return target
}

// nativePath is where the download primitive will place the file before the
// canonical rename. Empty when the URL has no usable basename.
func (c *Cache) nativePath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := filepath.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		base = fallbackBaseName
	}
	return filepath.Join(c.dir, base)
}

// CacheImages downloads images for a list of saves in fixed-size batches of
// BatchSize concurrent downloads. onProgress (optional) is invoked after
// each completed item, not each batch. The returned map holds the local
// path for every input save id; failed items map to "".
func (c *Cache) CacheImages(ctx context.Context, reqs []Request, onProgress ProgressFunc) map[string]string {
	results := make(map[string]string, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	total := len(reqs)
	var (
		resMu     sync.Mutex
		completed int
	)

	for start := 0; start < len(reqs); start += BatchSize {
		if ctx.Err() != nil {
			break
		}

		end := start + BatchSize
		if end > len(reqs) {
			end = len(reqs)
		}

		g := new(errgroup.Group)
		for _, req := range reqs[start:end] {
			g.Go(func() error {
				path := c.CacheImage(ctx, req.SaveID, req.URL)

				resMu.Lock()
				results[req.SaveID] = path
				completed++
				current := completed
				resMu.Unlock()

				if onProgress != nil {
					onProgress(current, total)
				}
				return nil
			})
		}
		// Per-item failures are already absorbed by CacheImage.
		_ = g.Wait()
	}

	return results
}

// IsCached reports whether the canonical file for a save exists.
func (c *Cache) IsCached(saveID, rawURL string) bool {
	_, err := os.Stat(c.path(saveID, rawURL))
	return err == nil
}

// ImageURI returns the local file URI when the image is cached, the remote
// URL unchanged when it is not, and "" when no URL was given at all. The UI
// layer renders this one field regardless of cache state.
func (c *Cache) ImageURI(saveID, rawURL string) string {
	if rawURL == "" {
		return ""
	}
	path := c.path(saveID, rawURL)
	if _, err := os.Stat(path); err == nil {
		return "file://" + path
	}
	return rawURL
}

// DeleteCachedImage removes the cached file for a save, if present.
func (c *Cache) DeleteCachedImage(saveID, rawURL string) error {
	err := os.Remove(c.path(saveID, rawURL))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete cached image: %w", err)
	}
	return nil
}

// Clear removes the entire cache directory and recreates it empty.
func (c *Cache) Clear() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("clear image cache: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("recreate image cache directory: %w", err)
	}
	return nil
}

// Size returns the total size in bytes of all cached files.
func (c *Cache) Size() (int64, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("read image cache directory: %w", err)
	}
	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// Count returns the number of cached files.
func (c *Cache) Count() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("read image cache directory: %w", err)
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			count++
		}
	}
	return count, nil
}

// PruneOrphaned deletes every cached file whose owning save id (the
// filename prefix) is not in activeIDs. Returns the ids whose files were
// removed; the count removed is its length.
// Pruning runs from exactly one call site, after the download phase of a
// sync completes, so it never races an in-flight download.
func (c *Cache) PruneOrphaned(activeIDs map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("read image cache directory: %w", err)
	}

	var pruned []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		id := strings.TrimSuffix(name, filepath.Ext(name))
		if activeIDs[id] {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil {
			log.Errorf("image cache: prune %s: %v", name, err)
			continue
		}
		pruned = append(pruned, id)
	}
	return pruned, nil
}
