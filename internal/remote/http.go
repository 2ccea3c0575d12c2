package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HTTPClient is the JSON-over-HTTP implementation of Client.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a client for the API at baseURL. A nil httpClient
// gets a 30s-timeout default.
func NewHTTPClient(baseURL, token string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client:  httpClient,
	}
}

// ListSaves returns one page of saves matching the filter.
func (c *HTTPClient) ListSaves(ctx context.Context, filter ListFilter) (*SaveList, error) {
	query := url.Values{}
	if filter.IsFavorite != nil {
		query.Set("isFavorite", strconv.FormatBool(*filter.IsFavorite))
	}
	if filter.CollectionID != "" {
		query.Set("collectionId", filter.CollectionID)
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Cursor != "" {
		query.Set("cursor", filter.Cursor)
	}

	var list SaveList
	if err := c.getJSON(ctx, "/v1/saves", query, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetSnapshot returns the snapshot for a save. (nil, nil) when absent.
func (c *HTTPClient) GetSnapshot(ctx context.Context, saveID string, includeContent bool) (*SnapshotResult, error) {
	query := url.Values{}
	if includeContent {
		query.Set("includeContent", "true")
	}

	var result SnapshotResult
	err := c.getJSON(ctx, "/v1/saves/"+url.PathEscape(saveID)+"/snapshot", query, &result)
	if err != nil {
		if errNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

// statusError carries the HTTP status of a non-2xx response. It unwraps to
// ErrNetwork so callers can test the taxonomy with errors.Is.
type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("network error: unexpected status %d from %s", e.code, e.url)
}

func (e *statusError) Unwrap() error { return ErrNetwork }

func errNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

// getJSON performs an authenticated GET and decodes the JSON response.
func (c *HTTPClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrNetwork, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode, url: u}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response from %s: %v", ErrNetwork, u, err)
	}
	return nil
}
