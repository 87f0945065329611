// Package proxy maintains the pool of outbound proxies used to avoid
// IP-based blocking by the data provider. The pool is loaded once per
// process, rotated round-robin, and keeps per-proxy failure counters so
// consistently dead endpoints are skipped without being removed.
package proxy

import (
	"bufio"
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	// UnhealthyThreshold is the consecutive-failure count after which a
	// proxy is skipped in rotation. It stays in the list and becomes
	// eligible again once no healthier endpoint remains.
	UnhealthyThreshold = 3

	listFetchTimeout = 15 * time.Second
	listUserAgent    = "shotvalue-proxy-loader/1.0 (+https://github.com/ndmitriev/shotvalue)"
)

// Sources configures where the pool loads its proxy list from, tried in
// order: file, remote URL, single URL, then standard proxy env vars.
type Sources struct {
	ListFile string
	ListURL  string
	URL      string
}

// Pool holds the process-wide proxy list, rotation cursor, failure counters
// and cached per-proxy transports. Instantiated once and passed by reference
// to the fetch client.
type Pool struct {
	sources Sources

	mu         sync.Mutex
	loaded     bool
	urls       []string
	cursor     int
	failures   map[string]int
	transports map[string]*http.Transport

	// listClient fetches the remote list; replaceable in tests.
	listClient *http.Client
}

func NewPool(sources Sources) *Pool {
	return &Pool{
		sources:    sources,
		failures:   make(map[string]int),
		transports: make(map[string]*http.Transport),
		listClient: &http.Client{Timeout: listFetchTimeout},
	}
}

// Load resolves and caches the proxy list. Safe to call multiple times, only
// the first call does work. An empty result means "no proxy, direct
// connection" and is not an error.
func (p *Pool) Load(ctx context.Context) []string {
	p.mu.Lock()
	if p.loaded {
		urls := p.urls
		p.mu.Unlock()
		return urls
	}
	p.mu.Unlock()

	urls := p.resolve(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		p.urls = urls
		p.loaded = true
	}
	return p.urls
}

func (p *Pool) resolve(ctx context.Context) []string {
	if p.sources.ListFile != "" {
		if urls := p.loadFromFile(p.sources.ListFile); len(urls) > 0 {
			slog.Info("Loaded proxy list from file", "path", p.sources.ListFile, "count", len(urls))
			return urls
		}
	}
	if p.sources.ListURL != "" {
		if urls := p.loadFromURL(ctx, p.sources.ListURL); len(urls) > 0 {
			slog.Info("Loaded proxy list from URL", "count", len(urls))
			return urls
		}
	}
	for _, env := range []string{"", "PROXY_URL", "HTTPS_PROXY", "HTTP_PROXY"} {
		raw := p.sources.URL
		if env != "" {
			raw = os.Getenv(env)
		}
		if raw == "" {
			continue
		}
		if u, ok := ParseLine(raw); ok {
			slog.Info("Using single fallback proxy", "source", env)
			return []string{u}
		}
	}
	slog.Info("No proxies configured, using direct connection")
	return nil
}

func (p *Pool) loadFromFile(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		slog.Warn("Failed to open proxy list file", "path", path, "error", err)
		return nil
	}
	defer f.Close()
	return parseList(f)
}

func (p *Pool) loadFromURL(ctx context.Context, listURL string) []string {
	ctx, cancel := context.WithTimeout(ctx, listFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		slog.Warn("Failed to build proxy list request", "error", err)
		return nil
	}
	req.Header.Set("Accept", "text/plain,*/*")
	req.Header.Set("User-Agent", listUserAgent)

	resp, err := p.listClient.Do(req)
	if err != nil {
		slog.Warn("Failed to fetch proxy list", "error", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		slog.Warn("Proxy list fetch returned non-200", "status", resp.StatusCode)
		return nil
	}
	return parseList(resp.Body)
}

func parseList(r io.Reader) []string {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if u, ok := ParseLine(scanner.Text()); ok {
			urls = append(urls, u)
		}
	}
	return urls
}

// ParseLine normalizes one proxy list entry to a proxy URL. Accepted forms:
//
//	scheme://[user:pass@]host:port   (http, https, socks5, socks5h)
//	user:pass@host:port
//	host:port:user:pass
//	host:port
//
// Malformed lines are discarded (ok=false).
func ParseLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", false
	}

	for _, scheme := range []string{"http://", "https://", "socks5://", "socks5h://"} {
		if strings.HasPrefix(line, scheme) {
			if _, err := url.Parse(line); err != nil {
				return "", false
			}
			return line, true
		}
	}
	if strings.Contains(line, "://") {
		// Unknown scheme.
		return "", false
	}

	if strings.Contains(line, "@") {
		candidate := "http://" + line
		if _, err := url.Parse(candidate); err != nil {
			return "", false
		}
		return candidate, true
	}

	parts := strings.Split(line, ":")
	switch len(parts) {
	case 2: // host:port
		if parts[0] == "" || parts[1] == "" {
			return "", false
		}
		return "http://" + line, true
	case 4: // host:port:user:pass
		if parts[0] == "" || parts[1] == "" {
			return "", false
		}
		u := url.URL{
			Scheme: "http",
			User:   url.UserPassword(parts[2], parts[3]),
			Host:   parts[0] + ":" + parts[1],
		}
		return u.String(), true
	default:
		return "", false
	}
}

// Select round-robins through the loaded list, skipping proxies whose
// failure counter has reached UnhealthyThreshold. When every proxy is
// unhealthy it still returns the next-in-rotation entry: a possibly dead
// proxy beats giving up the whole pool. Returns "" when the list is empty.
func (p *Pool) Select() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.urls)
	if n == 0 {
		return ""
	}

	for i := 0; i < n; i++ {
		candidate := p.urls[p.cursor%n]
		p.cursor++
		if p.failures[candidate] < UnhealthyThreshold {
			return candidate
		}
	}

	// All unhealthy: availability over purity.
	candidate := p.urls[p.cursor%n]
	p.cursor++
	return candidate
}

// MarkFailure increments the failure counter for a proxy URL.
func (p *Pool) MarkFailure(proxyURL string) {
	if proxyURL == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[proxyURL]++
	if p.failures[proxyURL] == UnhealthyThreshold {
		slog.Warn("Proxy marked unhealthy", "proxy", MaskURL(proxyURL))
	}
}

// MarkSuccess resets the failure counter for a proxy URL.
func (p *Pool) MarkSuccess(proxyURL string) {
	if proxyURL == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[proxyURL] = 0
}

// Failures returns a copy of the failure-counter map for diagnostics.
func (p *Pool) Failures() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int, len(p.failures))
	for k, v := range p.failures {
		out[k] = v
	}
	return out
}

// Transport selects a proxy and returns a cached transport dialing through
// it, plus the selected URL. Transports are cached per proxy URL so
// concurrent requests to the same proxy reuse connections. A proxy that
// cannot be turned into a transport is marked failed and (nil, "", false)
// is returned: the caller proceeds without a proxy rather than erroring.
func (p *Pool) Transport() (*http.Transport, string, bool) {
	proxyURL := p.Select()
	if proxyURL == "" {
		return nil, "", false
	}

	p.mu.Lock()
	if t, ok := p.transports[proxyURL]; ok {
		p.mu.Unlock()
		return t, proxyURL, true
	}
	p.mu.Unlock()

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		slog.Warn("Invalid proxy URL", "proxy", MaskURL(proxyURL), "error", err)
		p.MarkFailure(proxyURL)
		return nil, "", false
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	}
	transport.Proxy = http.ProxyURL(parsed)

	p.mu.Lock()
	p.transports[proxyURL] = transport
	p.mu.Unlock()
	return transport, proxyURL, true
}

// MaskURL hides proxy credentials for logging.
func MaskURL(proxyURL string) string {
	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return "***"
	}
	if parsed.User != nil {
		if _, hasPass := parsed.User.Password(); hasPass {
			parsed.User = url.UserPassword(parsed.User.Username(), "***")
		}
	}
	return parsed.String()
}
