package models

import "fmt"

// ShotOutcome is the canonical outcome of a shot event. Upstream outcome
// strings that we do not recognize map to OutcomeUnknown, never dropped.
type ShotOutcome string

const (
	OutcomeGoal      ShotOutcome = "goal"
	OutcomeOnTarget  ShotOutcome = "on_target"
	OutcomeOffTarget ShotOutcome = "off_target"
	OutcomeBlocked   ShotOutcome = "blocked"
	OutcomeUnknown   ShotOutcome = "unknown"
)

// BodyPart values as reported upstream (left_foot, right_foot, head, other).
// Kept as free-form string because the provider has changed the vocabulary
// between schema versions.
type BodyPart = string

// Shot is the canonical shot record all downstream statistics consume,
// independent of which upstream schema variant produced it.
type Shot struct {
	ID        string      `json:"id"`
	MatchID   string      `json:"match_id"`
	PlayerID  string      `json:"player_id"`
	TeamID    string      `json:"team_id"`
	Minute    int         `json:"minute"`
	Second    *int        `json:"second,omitempty"`
	Outcome   ShotOutcome `json:"outcome"`
	XG        *float64    `json:"xg,omitempty"`
	BodyPart  *BodyPart   `json:"body_part,omitempty"`
	Situation *string     `json:"situation,omitempty"`
	X         *float64    `json:"x,omitempty"`
	Y         *float64    `json:"y,omitempty"`
}

// SyntheticShotID builds a deterministic id for events the provider ships
// without any identifier. Position index keeps it unique within a match.
func SyntheticShotID(matchID string, index int) string {
	return fmt.Sprintf("%s-shot-%d", matchID, index)
}

// LineupPlayer is one player extracted from a lineup response.
type LineupPlayer struct {
	PlayerID      string  `json:"player_id"`
	TeamID        string  `json:"team_id"`
	Name          string  `json:"name"`
	Position      *string `json:"position,omitempty"`
	ImageURL      *string `json:"image_url,omitempty"`
	MinutesPlayed *int    `json:"minutes_played,omitempty"`
}

// MatchStatus is the computed classification of a match. The mapping chain
// always terminates in one of these three values, there is no unknown state.
type MatchStatus string

const (
	StatusFinished  MatchStatus = "finished"
	StatusLive      MatchStatus = "live"
	StatusScheduled MatchStatus = "scheduled"
)

// Match is a discovered fixture from the scheduled-events feed.
type Match struct {
	ID           string      `json:"id"`
	Tournament   string      `json:"tournament"`
	HomeTeamID   string      `json:"home_team_id"`
	AwayTeamID   string      `json:"away_team_id"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	KickoffUnix  int64       `json:"kickoff_unix"`
	Status       MatchStatus `json:"status"`
}

// PlayerForm is the derived per-player aggregate the dashboard reads:
// shot-count mean, standard deviation, coefficient of variation and the
// fraction of recent matches at or over the configured line.
type PlayerForm struct {
	PlayerID string  `json:"player_id"`
	Matches  int     `json:"matches"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	CV       float64 `json:"cv"`
	Line     float64 `json:"line"`
	HitRate  float64 `json:"hit_rate"`
}
