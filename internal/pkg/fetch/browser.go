package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// BrowserFetcher loads a URL in a headless Chrome instance and captures the
// JSON responses the page produced. Endpoints behind anti-bot protection
// answer a real browser where they 403 the plain client.
type BrowserFetcher struct {
	userAgent string
	timeout   time.Duration
}

var _ PageFetcher = (*BrowserFetcher)(nil)

func NewBrowserFetcher(userAgent string, timeout time.Duration) *BrowserFetcher {
	return &BrowserFetcher{userAgent: userAgent, timeout: timeout}
}

// FetchJSON navigates to url, waits for the network to settle, and returns
// the body of the first JSON response whose URL matches the requested path.
// Navigating straight to an API URL works too: the document response itself
// is captured. Like the HTTP client, "nothing found" is (nil, nil).
func (b *BrowserFetcher) FetchJSON(ctx context.Context, url string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(b.userAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, v ...any) {
		if os.Getenv("SHOTVALUE_DEBUG") == "1" {
			fmt.Printf("chromedp: "+format+"\n", v...)
		}
	}))
	defer cancelBrowser()

	matchPath := requestPath(url)

	var mu sync.Mutex
	var candidates []network.RequestID
	chromedp.ListenTarget(browserCtx, func(ev any) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok {
			return
		}
		if matchPath != "" {
			if !strings.Contains(resp.Response.URL, matchPath) {
				return
			}
		} else if !strings.Contains(strings.ToLower(resp.Response.MimeType), "json") {
			return
		}
		mu.Lock()
		candidates = append(candidates, resp.RequestID)
		mu.Unlock()
	})

	err := chromedp.Run(browserCtx,
		network.Enable(),
		chromedp.Navigate(url),
		// Give XHRs fired on load time to land; chromedp has no built-in
		// network-idle waiter.
		chromedp.Sleep(3*time.Second),
	)
	if err != nil {
		if ctx.Err() != nil {
			slog.Warn("Browser fetch timed out", "url", url)
			return nil, nil
		}
		slog.Warn("Browser fetch failed", "url", url, "error", err)
		return nil, nil
	}

	mu.Lock()
	ids := make([]network.RequestID, len(candidates))
	copy(ids, candidates)
	mu.Unlock()

	for _, id := range ids {
		var body []byte
		err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			body, err = network.GetResponseBody(id).Do(ctx)
			return err
		}))
		if err != nil || len(body) == 0 {
			continue
		}
		if looksLikeJSON(body) && json.Valid(body) {
			return json.RawMessage(body), nil
		}
	}

	slog.Warn("Browser fetch captured no JSON responses", "url", url, "candidates", len(ids))
	return nil, nil
}

// requestPath extracts the path portion used to match captured responses
// back to the requested URL. A URL with no path yields "", so the capture
// filter falls back to the JSON mime check instead of matching on the bare
// host, which every response from that origin would contain.
func requestPath(url string) string {
	rest := url
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	i := strings.Index(rest, "/")
	if i < 0 {
		return ""
	}
	rest = rest[i:]
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	if rest == "/" {
		return ""
	}
	return rest
}
