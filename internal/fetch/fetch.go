// Package fetch retrieves remote images for the *-from-url operations.
// Transient network failures and 5xx responses are retried with backoff;
// anything that is not an image is rejected before the body is read in full.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/templatehash/platform/internal/apperr"
	"github.com/templatehash/platform/internal/resilience"
)

const (
	DefaultTimeout  = 30 * time.Second
	DefaultMaxBytes = 20 << 20 // 20 MiB
)

// Result is a downloaded image.
type Result struct {
	Data        []byte
	ContentType string
}

// Fetcher downloads images over HTTP.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	retry    resilience.RetryConfig
}

// New creates a fetcher with the given per-request timeout and body size cap.
func New(timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
		retry:    resilience.DefaultRetryConfig(),
	}
}

// Fetch downloads the image at url. Server-side failures are retried;
// non-image responses fail with INVALID_ARGUMENT, everything else with
// FETCH_FAILED.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Result, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return Result{}, apperr.Newf(apperr.CodeInvalidArgument, "image_url must be an http(s) URL, got %q", url)
	}

	var res Result
	err := resilience.Retry(ctx, f.retry, func() error {
		var attemptErr error
		res, attemptErr = f.fetchOnce(ctx, url)
		return attemptErr
	})
	if err != nil {
		var appErr *apperr.AppError
		if errors.As(err, &appErr) {
			return Result{}, appErr
		}
		return Result{}, apperr.Wrapf(err, apperr.CodeFetchFailed, "downloading %s", url)
	}
	return res, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, apperr.Wrapf(err, apperr.CodeInvalidArgument, "building request for %s", url)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, resilience.Transient(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Result{}, resilience.Transient(
			apperr.Newf(apperr.CodeFetchFailed, "server returned %s for %s", resp.Status, url))
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, apperr.Newf(apperr.CodeFetchFailed, "server returned %s for %s", resp.Status, url)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return Result{}, apperr.Newf(apperr.CodeInvalidArgument,
			"URL does not point to an image (content type %q)", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return Result{}, resilience.Transient(fmt.Errorf("reading body of %s: %w", url, err))
	}
	if int64(len(data)) > f.maxBytes {
		return Result{}, apperr.Newf(apperr.CodeInvalidArgument,
			"image exceeds the %d byte limit", f.maxBytes)
	}

	return Result{Data: data, ContentType: contentType}, nil
}
