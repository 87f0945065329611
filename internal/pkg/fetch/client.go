// Package fetch retrieves JSON from the data provider. The plain HTTP client
// rotates through the proxy pool with retries; the chromedp-backed fetcher is
// the escape hatch for endpoints that block non-browser clients. Both sit
// behind the PageFetcher interface so the orchestrator picks the fallback
// order without the normalizer caring which transport succeeded.
package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ndmitriev/shotvalue/internal/pkg/proxy"
)

const (
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
)

// PageFetcher retrieves the JSON payload behind a URL. A (nil, nil) return
// means "no usable data": the endpoint answered with garbage or not at all,
// and the caller should try the next fallback tier. Errors are reserved for
// context cancellation.
type PageFetcher interface {
	FetchJSON(ctx context.Context, url string) (json.RawMessage, error)
}

// Client is the plain-HTTP fetcher. Each attempt dials through the next
// pool-selected proxy (or directly when the pool is empty) and reports the
// result back to the pool so rotation avoids dead endpoints.
type Client struct {
	pool      *proxy.Pool
	userAgent string
	timeout   time.Duration
	debug     bool
}

var _ PageFetcher = (*Client)(nil)

func NewClient(pool *proxy.Pool, userAgent string, timeout time.Duration) *Client {
	return &Client{
		pool:      pool,
		userAgent: userAgent,
		timeout:   timeout,
		debug:     os.Getenv("SHOTVALUE_DEBUG") == "1",
	}
}

// FetchJSON GETs url with retries and doubling backoff. Non-200, non-JSON
// bodies, network errors and timeouts all count as failed attempts; after
// the retry budget is spent the caller gets (nil, nil), not an error.
func (c *Client) FetchJSON(ctx context.Context, url string) (json.RawMessage, error) {
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		body, proxyURL, err := c.tryOnce(ctx, url)
		if err == nil {
			c.pool.MarkSuccess(proxyURL)
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.pool.MarkFailure(proxyURL)
		if c.debug {
			fmt.Printf("fetch: attempt %d for %s via %s failed: %v\n",
				attempt+1, url, proxy.MaskURL(proxyURL), err)
		}
	}

	slog.Warn("Fetch exhausted retries", "url", url)
	return nil, nil
}

func (c *Client) tryOnce(ctx context.Context, url string) (json.RawMessage, string, error) {
	transport, proxyURL, _ := c.pool.Transport()

	client := &http.Client{Timeout: c.timeout}
	if transport != nil {
		client.Transport = transport
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, proxyURL, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, proxyURL, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, proxyURL, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := readBodyMaybeGzip(resp)
	if err != nil {
		return nil, proxyURL, err
	}

	if !looksLikeJSON(body) {
		preview := body
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return nil, proxyURL, fmt.Errorf("non-JSON body (preview: %s)", preview)
	}
	if !json.Valid(body) {
		return nil, proxyURL, fmt.Errorf("invalid JSON body")
	}
	return json.RawMessage(body), proxyURL, nil
}

func (c *Client) setHeaders(req *http.Request) {
	// Browser-like headers: the provider blocks obvious non-browser clients.
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en,en-US;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Referer", "https://"+req.URL.Host+"/")
}

// looksLikeJSON sniffs the first non-space byte. Blocked requests usually
// come back as HTML challenge pages.
func looksLikeJSON(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

func readBodyMaybeGzip(resp *http.Response) ([]byte, error) {
	if resp.Header.Get("Content-Encoding") == "gzip" {
		r, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer r.Close()
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read gzip body: %w", err)
		}
		return b, nil
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}
