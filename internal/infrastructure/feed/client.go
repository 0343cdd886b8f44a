package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"LiteratureHarvester/internal/domain"
	"LiteratureHarvester/internal/normalize"
	"LiteratureHarvester/internal/ports"
)

const userAgent = "LiteratureHarvester/1.0"

// Client fetches abstract pages from a bioRxiv-style details API. A page
// is addressed as {base}/{date}/{date}/{page} and carries its records in
// the "collection" field.
type Client struct {
	baseURL    string
	pageSize   int
	maxRetries int
	http       *http.Client
	logger     *slog.Logger
}

var _ ports.Feed = (*Client)(nil)

// NewClient wires an HTTP client; pageSize is the feed's full-page capacity.
func NewClient(baseURL string, pageSize int, client *http.Client, logger *slog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{
		baseURL:    baseURL,
		pageSize:   pageSize,
		maxRetries: 3,
		http:       client,
		logger:     logger,
	}
}

// PageSize returns the feed's full-page capacity.
func (c *Client) PageSize() int {
	return c.pageSize
}

// FetchPage retrieves one page of records for the given date. Server-side
// and transport failures are retried with capped exponential backoff; the
// returned records are sanitized of inline markup.
func (c *Client) FetchPage(ctx context.Context, date string, page int) ([]domain.AbstractRecord, error) {
	pageURL := fmt.Sprintf("%s/%s/%s/%d", c.baseURL, date, date, page)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, retryDelay(attempt-1)); err != nil {
				return nil, err
			}
			c.debug("retrying feed fetch", "url", pageURL, "attempt", attempt)
		}

		records, retryable, err := c.fetchOnce(ctx, pageURL)
		if err == nil {
			return records, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}

	return nil, fmt.Errorf("fetch %s: %w", pageURL, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, pageURL string) ([]domain.AbstractRecord, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, true, fmt.Errorf("feed returned %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("feed returned %s", resp.Status)
	}

	var payload struct {
		Collection []domain.AbstractRecord `json:"collection"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("decode page: %w", err)
	}

	for i := range payload.Collection {
		payload.Collection[i].Title = normalize.Text(payload.Collection[i].Title)
		payload.Collection[i].Abstract = normalize.Text(payload.Collection[i].Abstract)
	}

	return payload.Collection, false, nil
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
