// Package overpass is a minimal Overpass API client with bounded retry,
// used to fetch query results for conversion.
package overpass

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aspectumapp/osm2geojson/internal/logger"
)

// DefaultURL is the public Overpass API interpreter endpoint.
const DefaultURL = "https://overpass-api.de/api/interpreter/"

// Client sends Overpass QL queries with a bounded retry policy on
// transient HTTP failures.
type Client struct {
	url        string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a client for the given endpoint. An empty endpoint
// uses the public Overpass API.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	return &Client{
		url: endpoint,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		maxRetries: 5,
		retryDelay: 5 * time.Second,
	}
}

// WithRetry overrides the retry policy.
func (c *Client) WithRetry(maxRetries int, delay time.Duration) *Client {
	c.maxRetries = maxRetries
	c.retryDelay = delay
	return c
}

// Query posts an Overpass QL query and returns the raw response body.
// Rate-limit and server errors are retried with a fixed delay up to the
// configured attempt count; other HTTP errors fail immediately.
func (c *Client) Query(ctx context.Context, query string) ([]byte, error) {
	log := logger.Get()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			log.Debug("Retrying overpass query",
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		body, retryable, err := c.post(ctx, query)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("overpass query failed after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) post(ctx context.Context, query string) ([]byte, bool, error) {
	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, false, fmt.Errorf("failed to build overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("overpass request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests ||
			resp.StatusCode == http.StatusGatewayTimeout ||
			resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("overpass server responded with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read overpass response: %w", err)
	}
	return body, false, nil
}
