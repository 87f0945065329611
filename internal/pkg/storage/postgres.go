package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/ndmitriev/shotvalue/internal/pkg/config"
	"github.com/ndmitriev/shotvalue/internal/pkg/models"
)

// Shot inserts are chunked so one oversized payload cannot blow the
// parameter limit or hold a transaction open for the whole match set.
const shotBatchSize = 500

var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(cfg *config.Postgres) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("PostgreSQL store initialized")
	return store, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS matches (
		id VARCHAR(100) PRIMARY KEY,
		tournament VARCHAR(200) NOT NULL DEFAULT '',
		home_team_id VARCHAR(100) NOT NULL DEFAULT '',
		away_team_id VARCHAR(100) NOT NULL DEFAULT '',
		home_team VARCHAR(200) NOT NULL DEFAULT '',
		away_team VARCHAR(200) NOT NULL DEFAULT '',
		kickoff_unix BIGINT NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS players (
		id VARCHAR(100) PRIMARY KEY,
		name VARCHAR(200) NOT NULL,
		position VARCHAR(50),
		image_url TEXT,
		current_team_id VARCHAR(100),
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS match_players (
		match_id VARCHAR(100) NOT NULL,
		player_id VARCHAR(100) NOT NULL,
		team_id VARCHAR(100) NOT NULL DEFAULT '',
		minutes_played INTEGER,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		PRIMARY KEY (match_id, player_id)
	);

	CREATE TABLE IF NOT EXISTS shot_events (
		id VARCHAR(200) PRIMARY KEY,
		match_id VARCHAR(100) NOT NULL,
		player_id VARCHAR(100) NOT NULL DEFAULT '',
		team_id VARCHAR(100) NOT NULL DEFAULT '',
		minute INTEGER NOT NULL DEFAULT 0,
		second INTEGER,
		outcome VARCHAR(20) NOT NULL,
		xg DECIMAL(6, 4),
		body_part VARCHAR(50),
		situation VARCHAR(50),
		x DECIMAL(8, 4),
		y DECIMAL(8, 4),
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS player_form (
		player_id VARCHAR(100) PRIMARY KEY,
		matches INTEGER NOT NULL,
		mean DECIMAL(8, 4) NOT NULL,
		std_dev DECIMAL(8, 4) NOT NULL,
		cv DECIMAL(8, 4) NOT NULL,
		line DECIMAL(6, 2) NOT NULL,
		hit_rate DECIMAL(6, 4) NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status);
	CREATE INDEX IF NOT EXISTS idx_matches_kickoff ON matches(kickoff_unix DESC);
	CREATE INDEX IF NOT EXISTS idx_shot_events_match ON shot_events(match_id);
	CREATE INDEX IF NOT EXISTS idx_shot_events_player ON shot_events(player_id);
	`

	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *PostgresStore) UpsertMatch(ctx context.Context, match *models.Match) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches (id, tournament, home_team_id, away_team_id, home_team, away_team, kickoff_unix, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			tournament = EXCLUDED.tournament,
			home_team_id = EXCLUDED.home_team_id,
			away_team_id = EXCLUDED.away_team_id,
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			kickoff_unix = EXCLUDED.kickoff_unix,
			status = EXCLUDED.status,
			updated_at = NOW()`,
		match.ID, match.Tournament, match.HomeTeamID, match.AwayTeamID,
		match.HomeTeam, match.AwayTeam, match.KickoffUnix, string(match.Status))
	if err != nil {
		return fmt.Errorf("upsert match %s: %w", match.ID, err)
	}
	return nil
}

func (s *PostgresStore) FinishedMatchIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM matches WHERE status = $1 ORDER BY kickoff_unix DESC`,
		string(models.StatusFinished))
	if err != nil {
		return nil, fmt.Errorf("query finished matches: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) Match(ctx context.Context, matchID string) (*models.Match, error) {
	var m models.Match
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tournament, home_team_id, away_team_id, home_team, away_team, kickoff_unix, status
		FROM matches WHERE id = $1`, matchID).Scan(
		&m.ID, &m.Tournament, &m.HomeTeamID, &m.AwayTeamID,
		&m.HomeTeam, &m.AwayTeam, &m.KickoffUnix, &status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query match %s: %w", matchID, err)
	}
	m.Status = models.MatchStatus(status)
	return &m, nil
}

// UpsertPlayer creates or updates a player. The name CASE keeps an existing
// descriptive name when the incoming one is a numeric placeholder; every
// other field updates normally.
func (s *PostgresStore) UpsertPlayer(ctx context.Context, player *models.LineupPlayer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, name, position, image_url, current_team_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = CASE
				WHEN players.name !~ '^[0-9]+$' AND EXCLUDED.name ~ '^[0-9]+$' THEN players.name
				ELSE EXCLUDED.name
			END,
			position = COALESCE(EXCLUDED.position, players.position),
			image_url = COALESCE(EXCLUDED.image_url, players.image_url),
			current_team_id = COALESCE(NULLIF(EXCLUDED.current_team_id, ''), players.current_team_id),
			updated_at = NOW()`,
		player.PlayerID, player.Name, player.Position, player.ImageURL, player.TeamID)
	if err != nil {
		return fmt.Errorf("upsert player %s: %w", player.PlayerID, err)
	}
	return nil
}

func (s *PostgresStore) AttachMatchPlayer(ctx context.Context, matchID string, player *models.LineupPlayer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_players (match_id, player_id, team_id, minutes_played)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (match_id, player_id) DO UPDATE SET
			team_id = CASE WHEN EXCLUDED.team_id <> '' THEN EXCLUDED.team_id ELSE match_players.team_id END,
			minutes_played = COALESCE(EXCLUDED.minutes_played, match_players.minutes_played),
			updated_at = NOW()`,
		matchID, player.PlayerID, player.TeamID, player.MinutesPlayed)
	if err != nil {
		return fmt.Errorf("attach player %s to match %s: %w", player.PlayerID, matchID, err)
	}
	return nil
}

// InsertShotEvents inserts shots in batches of shotBatchSize. Duplicate ids
// are skipped via ON CONFLICT DO NOTHING, so re-ingesting an unchanged
// payload never grows the table.
func (s *PostgresStore) InsertShotEvents(ctx context.Context, shots []models.Shot) error {
	for start := 0; start < len(shots); start += shotBatchSize {
		end := start + shotBatchSize
		if end > len(shots) {
			end = len(shots)
		}
		if err := s.insertShotBatch(ctx, shots[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) insertShotBatch(ctx context.Context, shots []models.Shot) error {
	if len(shots) == 0 {
		return nil
	}

	const cols = 12
	var sb strings.Builder
	sb.WriteString(`INSERT INTO shot_events
		(id, match_id, player_id, team_id, minute, second, outcome, xg, body_part, situation, x, y) VALUES `)
	args := make([]any, 0, len(shots)*cols)
	for i, shot := range shots {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * cols
		sb.WriteString("(")
		for j := 1; j <= cols; j++ {
			if j > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteString(")")
		args = append(args,
			shot.ID, shot.MatchID, shot.PlayerID, shot.TeamID, shot.Minute, shot.Second,
			string(shot.Outcome), shot.XG, shot.BodyPart, shot.Situation, shot.X, shot.Y)
	}
	sb.WriteString(" ON CONFLICT (id) DO NOTHING")

	if _, err := s.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert shot batch of %d: %w", len(shots), err)
	}
	return nil
}

// PlayerShotCounts returns, per player, shot counts of their most recent
// finished matches, newest first, at most window entries each. The match
// window comes from lineup appearances, not from shot_events: a finished
// match where the player appeared but never shot contributes a 0, otherwise
// means and hit rates only see shots-only matches and overstate form.
func (s *PostgresStore) PlayerShotCounts(ctx context.Context, window int) (map[string][]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, cnt FROM (
			SELECT mp.player_id,
			       COALESCE(sc.cnt, 0) AS cnt,
			       ROW_NUMBER() OVER (PARTITION BY mp.player_id ORDER BY m.kickoff_unix DESC) AS rn,
			       m.kickoff_unix
			FROM match_players mp
			JOIN matches m ON m.id = mp.match_id
			LEFT JOIN (
				SELECT match_id, player_id, COUNT(*) AS cnt
				FROM shot_events
				GROUP BY match_id, player_id
			) sc ON sc.match_id = mp.match_id AND sc.player_id = mp.player_id
			WHERE m.status = $1
		) t
		WHERE rn <= $2
		ORDER BY player_id, kickoff_unix DESC`,
		string(models.StatusFinished), window)
	if err != nil {
		return nil, fmt.Errorf("query shot counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string][]int)
	for rows.Next() {
		var playerID string
		var cnt int
		if err := rows.Scan(&playerID, &cnt); err != nil {
			return nil, err
		}
		counts[playerID] = append(counts[playerID], cnt)
	}
	return counts, rows.Err()
}

func (s *PostgresStore) UpsertPlayerForm(ctx context.Context, form *models.PlayerForm) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO player_form (player_id, matches, mean, std_dev, cv, line, hit_rate, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (player_id) DO UPDATE SET
			matches = EXCLUDED.matches,
			mean = EXCLUDED.mean,
			std_dev = EXCLUDED.std_dev,
			cv = EXCLUDED.cv,
			line = EXCLUDED.line,
			hit_rate = EXCLUDED.hit_rate,
			updated_at = NOW()`,
		form.PlayerID, form.Matches, form.Mean, form.StdDev, form.CV, form.Line, form.HitRate)
	if err != nil {
		return fmt.Errorf("upsert form for player %s: %w", form.PlayerID, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
