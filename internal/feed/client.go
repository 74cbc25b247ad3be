// Package feed fetches analysis snapshots from the backend, or reads them from
// disk, and normalises their loosely-typed payloads into models.Snapshot.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rewired-gh/strategia/internal/models"
)

// ClientConfig tunes retry behaviour and the HTTP transport.
type ClientConfig struct {
	MaxRetries          int
	RetryDelayBase      time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// Client provides access to the analysis backend.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new backend client.
func NewClient(baseURL string, timeout time.Duration, cfg ClientConfig) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 20
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = 10
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        cfg.MaxIdleConns,
				MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
				IdleConnTimeout:     cfg.IdleConnTimeout,
			},
		},
		maxRetries:     cfg.MaxRetries,
		retryDelayBase: cfg.RetryDelayBase,
	}
}

// FetchSnapshot retrieves the latest analysis for symbol.
func (c *Client) FetchSnapshot(ctx context.Context, symbol string) (models.Snapshot, error) {
	u, err := url.Parse(c.baseURL + "/analysis/" + url.PathEscape(symbol))
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to parse URL: %w", err)
	}

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.Snapshot{}, fmt.Errorf("unexpected status %d for %s: %s", resp.StatusCode, symbol, strings.TrimSpace(string(body)))
	}

	raw, err := decodeObject(resp.Body)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to decode %s: %w", symbol, err)
	}
	snap := ParseSnapshot(raw)
	if snap.Symbol == "" {
		snap.Symbol = symbol
	}
	return snap, nil
}

// LoadFile reads one snapshot from a JSON file.
func LoadFile(path string) (models.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	raw, err := decodeObject(f)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	return ParseSnapshot(raw), nil
}

func decodeObject(r io.Reader) (map[string]any, error) {
	var raw map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("payload is not a JSON object")
	}
	return raw, nil
}

// doRequest performs a GET with linear-backoff retry on transport errors and 5xx.
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
		default:
			return resp, nil
		}

		if i == c.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
