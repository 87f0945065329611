package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ndmitriev/shotvalue/internal/pkg/models"
)

func TestScheduledEvents(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	raw := json.RawMessage(`{"events": [
		{
			"id": 1001,
			"tournament": {"name": "Premier League"},
			"homeTeam": {"id": 11, "name": "Home FC"},
			"awayTeam": {"id": 22, "name": "Away FC"},
			"startTimestamp": 1772300000,
			"status": {"type": "finished", "code": 100}
		},
		{
			"id": 1002,
			"homeTeam": {"id": 33, "name": "Third FC"},
			"awayTeam": {"id": 44, "name": "Fourth FC"},
			"startTimestamp": 1772500000,
			"status": {"code": 0}
		},
		{"no": "id here"}
	]}`)

	matches := ScheduledEvents(raw, now)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "1001" || matches[0].Tournament != "Premier League" {
		t.Errorf("first match: %+v", matches[0])
	}
	if matches[0].HomeTeamID != "11" || matches[0].AwayTeamID != "22" {
		t.Errorf("team ids: %s, %s", matches[0].HomeTeamID, matches[0].AwayTeamID)
	}
	if matches[0].Status != models.StatusFinished {
		t.Errorf("status = %s", matches[0].Status)
	}
	if matches[1].Status != models.StatusScheduled {
		t.Errorf("code 0 should map to scheduled, got %s", matches[1].Status)
	}
}

func TestScheduledEventsKickoffFallback(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-3 * time.Hour).Unix()
	raw, _ := json.Marshal(map[string]any{"events": []any{
		map[string]any{"id": "m1", "startTimestamp": past},
	}})
	matches := ScheduledEvents(raw, now)
	if len(matches) != 1 || matches[0].Status != models.StatusFinished {
		t.Fatalf("past kickoff without status should be finished: %+v", matches)
	}
}
