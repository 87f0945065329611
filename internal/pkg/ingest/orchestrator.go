// Package ingest walks the configured tournaments and matches, fetches
// lineups and shot events through the resilient fetch chain, normalizes them
// and persists the result. Every stage is idempotent: a re-run over
// unchanged upstream data changes nothing in the store.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/ndmitriev/shotvalue/internal/pkg/config"
	"github.com/ndmitriev/shotvalue/internal/pkg/fetch"
	"github.com/ndmitriev/shotvalue/internal/pkg/health"
	"github.com/ndmitriev/shotvalue/internal/pkg/normalize"
	"github.com/ndmitriev/shotvalue/internal/pkg/storage"
)

// Orchestrator drives the pipeline stages. HTTP is tried first for every
// fetch; the browser fetcher (when present) is the fallback for blocked
// endpoints; a match that yields nothing on either path is abandoned with a
// warning and the rest of the run continues.
type Orchestrator struct {
	store        storage.Store
	cache        *storage.Cache
	httpFetch    fetch.PageFetcher
	browserFetch fetch.PageFetcher
	baseURL      string
	cfg          config.Pipeline
	now          func() time.Time
}

func NewOrchestrator(
	store storage.Store,
	cache *storage.Cache,
	httpFetch, browserFetch fetch.PageFetcher,
	baseURL string,
	cfg config.Pipeline,
) *Orchestrator {
	return &Orchestrator{
		store:        store,
		cache:        cache,
		httpFetch:    httpFetch,
		browserFetch: browserFetch,
		baseURL:      baseURL,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (o *Orchestrator) lineupsURL(matchID string) string {
	return fmt.Sprintf("%s/api/v1/event/%s/lineups", o.baseURL, matchID)
}

func (o *Orchestrator) shotmapURL(matchID string) string {
	return fmt.Sprintf("%s/api/v1/event/%s/shotmap", o.baseURL, matchID)
}

func (o *Orchestrator) scheduledURL(date string) string {
	return fmt.Sprintf("%s/api/v1/sport/football/scheduled-events/%s", o.baseURL, date)
}

// fetchWithFallback runs the fixed fallback chain for one URL: cache, plain
// HTTP with retries, browser. nil means every tier came up empty.
func (o *Orchestrator) fetchWithFallback(ctx context.Context, kind, id, url string) json.RawMessage {
	if cached := o.cache.GetPayload(ctx, kind, id); cached != nil {
		return cached
	}

	body, err := o.httpFetch.FetchJSON(ctx, url)
	if err != nil {
		return nil // context cancelled
	}
	if body == nil && o.browserFetch != nil {
		slog.Info("HTTP fetch yielded nothing, trying browser", "kind", kind, "id", id)
		body, err = o.browserFetch.FetchJSON(ctx, url)
		if err != nil {
			return nil
		}
	}
	if body != nil {
		o.cache.StorePayload(ctx, kind, id, body)
	}
	return body
}

// Discover walks the scheduled-events feed for the configured date window
// and upserts every match belonging to a configured tournament (or all
// matches when no tournament filter is set).
func (o *Orchestrator) Discover(ctx context.Context) error {
	now := o.now()
	wanted := make(map[string]bool, len(o.cfg.Tournaments))
	for _, t := range o.cfg.Tournaments {
		wanted[t] = true
	}

	var discovered int
	for day := 0; day <= o.cfg.DaysBack; day++ {
		date := now.AddDate(0, 0, -day).Format("2006-01-02")
		body := o.fetchWithFallback(ctx, "scheduled", date, o.scheduledURL(date))
		if body == nil {
			slog.Warn("No scheduled events for date", "date", date)
			continue
		}

		for _, match := range normalize.ScheduledEvents(body, now) {
			if len(wanted) > 0 && !wanted[match.Tournament] {
				continue
			}
			if err := o.store.UpsertMatch(ctx, &match); err != nil {
				slog.Warn("Failed to upsert match", "match", match.ID, "error", err)
				continue
			}
			discovered++
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	health.AddMatchesDiscovered(discovered)
	slog.Info("Discover finished", "matches", discovered)
	return nil
}

// Ingest fetches lineups and shots for every finished match, with the match
// fan-out capped at the configured concurrency. Per-match failures are
// logged and skipped; only a store-level listing failure is returned.
func (o *Orchestrator) Ingest(ctx context.Context) error {
	matchIDs, err := o.store.FinishedMatchIDs(ctx)
	if err != nil {
		return fmt.Errorf("list finished matches: %w", err)
	}
	slog.Info("Ingest starting", "matches", len(matchIDs), "concurrency", o.cfg.Concurrency)

	p := pool.New().WithMaxGoroutines(o.cfg.Concurrency)
	for _, matchID := range matchIDs {
		matchID := matchID
		p.Go(func() {
			if err := o.IngestMatch(ctx, matchID); err != nil {
				slog.Warn("Match ingestion failed", "match", matchID, "error", err)
				health.AddMatchesAbandoned(1)
				return
			}
			health.AddMatchesIngested(1)
		})
	}
	p.Wait()
	return ctx.Err()
}

// IngestMatch runs the full fetch+normalize+persist chain for one match.
// Lineup persistence happens before the match counts as ingested; shots
// follow. "No data on any tier" abandons the match without error spam
// beyond one warning.
func (o *Orchestrator) IngestMatch(ctx context.Context, matchID string) error {
	match, err := o.store.Match(ctx, matchID)
	if err != nil {
		return err
	}
	var homeTeamID, awayTeamID string
	if match != nil {
		homeTeamID, awayTeamID = match.HomeTeamID, match.AwayTeamID
	}

	lineupBody := o.fetchWithFallback(ctx, "lineups", matchID, o.lineupsURL(matchID))
	if lineupBody == nil {
		return fmt.Errorf("no lineup data available")
	}

	players := normalize.Lineups(lineupBody, homeTeamID, awayTeamID)
	for i := range players {
		player := &players[i]
		if err := o.store.UpsertPlayer(ctx, player); err != nil {
			slog.Warn("Failed to upsert player", "player", player.PlayerID, "error", err)
			continue
		}
		if err := o.store.AttachMatchPlayer(ctx, matchID, player); err != nil {
			slog.Warn("Failed to attach player", "player", player.PlayerID, "match", matchID, "error", err)
			continue
		}
		health.AddPlayersUpserted(1)
	}

	shotBody := o.fetchWithFallback(ctx, "shotmap", matchID, o.shotmapURL(matchID))
	if shotBody != nil {
		shots := normalize.Shots(matchID, shotBody)
		if len(shots) > 0 {
			if err := o.store.InsertShotEvents(ctx, shots); err != nil {
				return fmt.Errorf("insert shots: %w", err)
			}
			health.AddShotsInserted(len(shots))
		}
	}

	slog.Info("Match ingested", "match", matchID, "players", len(players))
	return nil
}

// Full runs discover, ingest and bridge in order.
func (o *Orchestrator) Full(ctx context.Context) error {
	if err := o.Discover(ctx); err != nil {
		return err
	}
	if err := o.Ingest(ctx); err != nil {
		return err
	}
	return o.Bridge(ctx)
}
