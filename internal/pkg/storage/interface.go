package storage

import (
	"context"

	"github.com/ndmitriev/shotvalue/internal/pkg/models"
)

// Store is the persistence collaborator the orchestrator writes into. All
// write operations are idempotent: re-running an ingestion never duplicates
// shot rows or regresses a player's known display name.
type Store interface {
	// UpsertMatch creates or refreshes a discovered match row.
	UpsertMatch(ctx context.Context, match *models.Match) error

	// FinishedMatchIDs returns ids of matches currently classified finished.
	FinishedMatchIDs(ctx context.Context) ([]string, error)

	// Match returns one match row, or nil when unknown.
	Match(ctx context.Context, matchID string) (*models.Match, error)

	// UpsertPlayer creates or updates a player keyed by id. An existing
	// descriptive name is never overwritten by a numeric placeholder.
	UpsertPlayer(ctx context.Context, player *models.LineupPlayer) error

	// AttachMatchPlayer creates or updates the (matchID, playerID)
	// association carrying minutes played.
	AttachMatchPlayer(ctx context.Context, matchID string, player *models.LineupPlayer) error

	// InsertShotEvents bulk-inserts shots in fixed-size batches, skipping
	// duplicate-key rows instead of failing the batch.
	InsertShotEvents(ctx context.Context, shots []models.Shot) error

	// PlayerShotCounts returns per-player shot counts of their most recent
	// finished matches (newest first), capped at window matches per player.
	// The window spans every match the player appeared in, so a zero-shot
	// appearance contributes a 0 to the series.
	PlayerShotCounts(ctx context.Context, window int) (map[string][]int, error)

	// UpsertPlayerForm stores the derived per-player aggregates.
	UpsertPlayerForm(ctx context.Context, form *models.PlayerForm) error

	// Close closes the underlying connection.
	Close() error
}
