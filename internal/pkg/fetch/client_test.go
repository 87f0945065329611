package fetch

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ndmitriev/shotvalue/internal/pkg/proxy"
)

func newTestClient() *Client {
	return NewClient(proxy.NewPool(proxy.Sources{}), "test-agent", 2*time.Second)
}

func TestFetchJSONSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "test-agent" {
			t.Errorf("User-Agent = %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"events": []}`))
	}))
	defer srv.Close()

	body, err := newTestClient().FetchJSON(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"events": []}` {
		t.Errorf("body = %s", body)
	}
}

func TestFetchJSONGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte(`[1,2,3]`))
		gz.Close()
	}))
	defer srv.Close()

	body, err := newTestClient().FetchJSON(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `[1,2,3]` {
		t.Errorf("body = %s", body)
	}
}

func TestFetchJSONExhaustedRetriesReturnsNoData(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	body, err := newTestClient().FetchJSON(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("expected soft failure, got error: %v", err)
	}
	if body != nil {
		t.Errorf("expected nil body, got %s", body)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestFetchJSONRejectsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>blocked</body></html>`))
	}))
	defer srv.Close()

	body, err := newTestClient().FetchJSON(context.Background(), srv.URL)
	if err != nil || body != nil {
		t.Errorf("expected (nil, nil) for HTML body, got (%s, %v)", body, err)
	}
}

func TestFetchJSONRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	body, err := newTestClient().FetchJSON(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"ok": true}` {
		t.Errorf("body = %s", body)
	}
}

func TestFetchJSONRecordsProxyFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	// A pool with one proxy pointing at a dead port: requests go through the
	// proxy transport and fail, and the failure must be recorded.
	pool := proxy.NewPool(proxy.Sources{URL: "127.0.0.1:1"})
	pool.Load(context.Background())
	client := NewClient(pool, "test-agent", time.Second)

	body, err := client.FetchJSON(context.Background(), srv.URL)
	if err != nil || body != nil {
		t.Fatalf("expected (nil, nil), got (%s, %v)", body, err)
	}
	if got := pool.Failures()["http://127.0.0.1:1"]; got != 3 {
		t.Errorf("expected 3 recorded failures, got %d", got)
	}
}

func TestFetchJSONContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestClient().FetchJSON(ctx, srv.URL); err == nil {
		t.Error("expected context error")
	}
}
