package imagecache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
)

// fallbackBaseName is used when a URL has no usable path basename.
const fallbackBaseName = "download"

// Downloader fetches a remote resource into a directory. The file is named
// after the URL's own basename; callers own renaming it to a canonical name.
type Downloader interface {
	Download(ctx context.Context, rawURL, dir string) (string, error)
}

// HTTPDownloader downloads over HTTP with a polite request rate cap.
type HTTPDownloader struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPDownloader creates a downloader. A nil client gets a 30s-timeout
// default.
func NewHTTPDownloader(client *http.Client) *HTTPDownloader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	// 2 requests/second sustained, bursts up to a full batch.
	return &HTTPDownloader{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), BatchSize),
	}
}

// Download fetches rawURL into dir, naming the file after the URL basename.
func (d *HTTPDownloader) Download(ctx context.Context, rawURL, dir string) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	dest := filepath.Join(dir, baseName(rawURL))
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", dest, err)
	}

	return dest, nil
}

// baseName extracts the native file name a download lands under.
func baseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallbackBaseName
	}
	base := filepath.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return fallbackBaseName
	}
	return base
}
