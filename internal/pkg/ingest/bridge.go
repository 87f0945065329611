package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/ndmitriev/shotvalue/internal/pkg/health"
	"github.com/ndmitriev/shotvalue/internal/pkg/models"
)

// Bridge recomputes the per-player form aggregates the dashboard reads:
// shot-count mean, standard deviation, coefficient of variation and hit
// rate over the configured line, across each player's recent finished
// matches.
func (o *Orchestrator) Bridge(ctx context.Context) error {
	counts, err := o.store.PlayerShotCounts(ctx, o.cfg.FormWindow)
	if err != nil {
		return fmt.Errorf("load shot counts: %w", err)
	}

	var computed int
	for playerID, series := range counts {
		if len(series) == 0 {
			continue
		}
		form := computeForm(playerID, series, o.cfg.ShotLine)
		if err := o.store.UpsertPlayerForm(ctx, form); err != nil {
			slog.Warn("Failed to upsert player form", "player", playerID, "error", err)
			continue
		}
		computed++
	}

	health.AddFormsComputed(computed)
	slog.Info("Bridge finished", "players", computed)
	return nil
}

// computeForm derives the aggregates for one player's shot-count series.
// CV is stdev/mean, 0 when the mean is 0. Population stdev: the series is
// the whole window, not a sample.
func computeForm(playerID string, series []int, line float64) *models.PlayerForm {
	var sum float64
	for _, n := range series {
		sum += float64(n)
	}
	mean := sum / float64(len(series))

	var sqDiff float64
	var hits int
	for _, n := range series {
		d := float64(n) - mean
		sqDiff += d * d
		if float64(n) >= line {
			hits++
		}
	}
	stdDev := math.Sqrt(sqDiff / float64(len(series)))

	cv := 0.0
	if mean > 0 {
		cv = stdDev / mean
	}

	return &models.PlayerForm{
		PlayerID: playerID,
		Matches:  len(series),
		Mean:     mean,
		StdDev:   stdDev,
		CV:       cv,
		Line:     line,
		HitRate:  float64(hits) / float64(len(series)),
	}
}
