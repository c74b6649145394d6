package stage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"
)

// HTTPFetcher downloads single files from http:// and https:// locations,
// such as structures published by the PDB.
type HTTPFetcher struct {
	client     *http.Client
	maxRetries int
	retryDelay time.Duration

	// BearerToken, if set, is sent as an Authorization header.
	BearerToken string
}

// NewHTTPFetcher creates a fetcher with the given timeout and attempt count.
func NewHTTPFetcher(timeout time.Duration, maxRetries int) *HTTPFetcher {
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &HTTPFetcher{
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		retryDelay: time.Second,
	}
}

// Fetch downloads location to destPath, retrying server errors with
// exponential backoff. Client errors (4xx) are not retried.
func (f *HTTPFetcher) Fetch(ctx context.Context, location, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.delay(attempt)):
			}
		}

		err := f.download(ctx, location, destPath)
		if err == nil {
			return nil
		}
		lastErr = err

		var he *httpError
		if errors.As(err, &he) && he.StatusCode >= 400 && he.StatusCode < 500 {
			return err
		}
	}
	return fmt.Errorf("download failed after %d attempts: %w", f.maxRetries, lastErr)
}

func (f *HTTPFetcher) download(ctx context.Context, location, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if f.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+f.BearerToken)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &httpError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	// Write to a temp file first so a partial download never looks complete.
	tmpPath := destPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	_, err = io.Copy(out, resp.Body)
	if closeErr := out.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// delay is retryDelay * 2^attempt, capped at 30 seconds.
func (f *HTTPFetcher) delay(attempt int) time.Duration {
	d := f.retryDelay
	for i := 0; i < attempt; i++ {
		d *= 2
	}
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

// urlBase returns the last path element of a URL, ignoring any query.
func urlBase(location string) string {
	u, err := url.Parse(location)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "download"
	}
	return path.Base(u.Path)
}

// httpError represents an HTTP error response.
type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}
