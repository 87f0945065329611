package health

import "sync/atomic"

// Process-wide pipeline counters surfaced by the status server. Written by
// the orchestrator, read by handlers.
var (
	matchesDiscovered atomic.Int64
	matchesIngested   atomic.Int64
	matchesAbandoned  atomic.Int64
	playersUpserted   atomic.Int64
	shotsInserted     atomic.Int64
	formsComputed     atomic.Int64
)

func AddMatchesDiscovered(n int) { matchesDiscovered.Add(int64(n)) }
func AddMatchesIngested(n int)   { matchesIngested.Add(int64(n)) }
func AddMatchesAbandoned(n int)  { matchesAbandoned.Add(int64(n)) }
func AddPlayersUpserted(n int)   { playersUpserted.Add(int64(n)) }
func AddShotsInserted(n int)     { shotsInserted.Add(int64(n)) }
func AddFormsComputed(n int)     { formsComputed.Add(int64(n)) }

// Snapshot is the JSON shape of /status.
type Snapshot struct {
	MatchesDiscovered int64          `json:"matches_discovered"`
	MatchesIngested   int64          `json:"matches_ingested"`
	MatchesAbandoned  int64          `json:"matches_abandoned"`
	PlayersUpserted   int64          `json:"players_upserted"`
	ShotsInserted     int64          `json:"shots_inserted"`
	FormsComputed     int64          `json:"forms_computed"`
	ProxyFailures     map[string]int `json:"proxy_failures,omitempty"`
}

func CurrentSnapshot() Snapshot {
	return Snapshot{
		MatchesDiscovered: matchesDiscovered.Load(),
		MatchesIngested:   matchesIngested.Load(),
		MatchesAbandoned:  matchesAbandoned.Load(),
		PlayersUpserted:   playersUpserted.Load(),
		ShotsInserted:     shotsInserted.Load(),
		FormsComputed:     formsComputed.Load(),
	}
}
