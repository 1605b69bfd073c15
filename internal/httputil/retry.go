// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil fetches catalogs over HTTP with retry.
package httputil

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/labref/pkg/types"
)

// RetryBaseDelay is the first backoff wait; each retry doubles it.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

const defaultMaxRetries = 3

// maxCatalogBytes caps a fetched catalog body.
const maxCatalogBytes = 32 << 20

// Retryable reports whether a response status is worth retrying: 429 and
// any 5xx.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// DoWithRetry executes req and retries Retryable responses with exponential
// backoff starting at RetryBaseDelay. When maxRetries is 0 the default (3)
// is used. Bodies of retried responses are drained and closed. After
// exhausting retries the last response is returned for the caller to
// inspect. Cancelling ctx during a backoff returns ctx.Err().
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if !Retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		logrus.WithFields(logrus.Fields{
			"url":     req.URL.String(),
			"status":  resp.StatusCode,
			"attempt": attempt + 1,
			"backoff": backoff.String(),
		}).Warn("catalog fetch failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// Fetch downloads the catalog at url. Non-200 responses are errors.
func Fetch(ctx context.Context, url string, cfg types.FetchConfig) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.5")

	client := &http.Client{Timeout: cfg.Timeout}
	resp, err := DoWithRetry(ctx, client, req, cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(data) > maxCatalogBytes {
		return nil, fmt.Errorf("catalog at %s exceeds %d bytes", url, maxCatalogBytes)
	}
	return data, nil
}
