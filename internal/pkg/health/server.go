// Package health runs the ops HTTP surface next to the pipeline: liveness
// plus a counter snapshot so a deploy can tell whether a run actually moved
// data without reading logs.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/ndmitriev/shotvalue/internal/pkg/proxy"
)

// Run serves /healthz and /status until ctx is cancelled. Blocking; callers
// start it in a goroutine.
func Run(ctx context.Context, addr string, readHeaderTimeout time.Duration, pool *proxy.Pool) {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", handlePing).Methods(http.MethodGet)
	router.HandleFunc("/status", handleStatus(pool)).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:              addr,
		Handler:           cors.AllowAll().Handler(router),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Status server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Status server failed", "error", err)
	}
}

func handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleStatus(pool *proxy.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snapshot := CurrentSnapshot()
		if pool != nil {
			masked := make(map[string]int)
			for url, n := range pool.Failures() {
				masked[proxy.MaskURL(url)] = n
			}
			snapshot.ProxyFailures = masked
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snapshot); err != nil {
			slog.Warn("Failed to encode status", "error", err)
		}
	}
}
