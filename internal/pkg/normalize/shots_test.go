package normalize

import (
	"encoding/json"
	"testing"

	"github.com/ndmitriev/shotvalue/internal/pkg/models"
)

func TestShotsGoalEvents(t *testing.T) {
	raw := json.RawMessage(`{"events": [
		{"id": "e1", "type": "shot", "outcome": "goal", "minute": 12, "xg": 0.42, "player": {"id": "p1"}, "team": {"id": "t1"}},
		{"id": "e2", "type": "goal", "minute": 77, "xg": 0.08, "playerId": "p2", "teamId": "t1"}
	]}`)

	shots := Shots("m1", raw)
	if len(shots) != 2 {
		t.Fatalf("expected 2 shots, got %d", len(shots))
	}
	for i, s := range shots {
		if s.Outcome != models.OutcomeGoal {
			t.Errorf("shot %d: outcome = %s, want goal", i, s.Outcome)
		}
	}
	if shots[0].Minute != 12 || shots[1].Minute != 77 {
		t.Errorf("minutes = %d, %d", shots[0].Minute, shots[1].Minute)
	}
	if shots[0].XG == nil || *shots[0].XG != 0.42 {
		t.Errorf("xg did not pass through: %v", shots[0].XG)
	}
	if shots[0].PlayerID != "p1" || shots[1].PlayerID != "p2" {
		t.Errorf("player ids = %s, %s", shots[0].PlayerID, shots[1].PlayerID)
	}
	if shots[0].TeamID != "t1" || shots[1].TeamID != "t1" {
		t.Errorf("team ids = %s, %s", shots[0].TeamID, shots[1].TeamID)
	}
}

func TestShotsOutcomeMapping(t *testing.T) {
	cases := []struct {
		outcome string
		want    models.ShotOutcome
	}{
		{"blocked", models.OutcomeBlocked},
		{"off", models.OutcomeOffTarget},
		{"miss", models.OutcomeOffTarget},
		{"save", models.OutcomeOnTarget},
		{"on_target", models.OutcomeOnTarget},
		{"something-new", models.OutcomeUnknown},
	}
	for _, c := range cases {
		raw, _ := json.Marshal([]map[string]any{
			{"type": "shot", "outcome": c.outcome, "bodyPart": "head", "situation": "corner"},
		})
		shots := Shots("m1", raw)
		if len(shots) != 1 {
			t.Fatalf("outcome %q: expected 1 shot, got %d", c.outcome, len(shots))
		}
		if shots[0].Outcome != c.want {
			t.Errorf("outcome %q mapped to %s, want %s", c.outcome, shots[0].Outcome, c.want)
		}
		if shots[0].BodyPart == nil || *shots[0].BodyPart != "head" {
			t.Errorf("outcome %q: bodyPart not preserved", c.outcome)
		}
		if shots[0].Situation == nil || *shots[0].Situation != "corner" {
			t.Errorf("outcome %q: situation not preserved", c.outcome)
		}
	}
}

func TestShotsExcludesNonShotEvents(t *testing.T) {
	raw := json.RawMessage(`{"events": [
		{"type": "substitution", "minute": 60},
		{"type": "card", "minute": 33},
		{"type": "shot", "outcome": "off", "minute": 10}
	]}`)
	shots := Shots("m1", raw)
	if len(shots) != 1 {
		t.Fatalf("expected 1 shot, got %d", len(shots))
	}
	if shots[0].Outcome != models.OutcomeOffTarget {
		t.Errorf("outcome = %s", shots[0].Outcome)
	}
}

func TestShotsMinuteDefaultsAndSyntheticIDs(t *testing.T) {
	raw := json.RawMessage(`[
		{"type": "shot", "outcome": "off"},
		{"type": "shot", "outcome": "blocked", "minute": "38"}
	]`)
	shots := Shots("m42", raw)
	if len(shots) != 2 {
		t.Fatalf("expected 2 shots, got %d", len(shots))
	}
	if shots[0].Minute != 0 {
		t.Errorf("missing minute should default to 0, got %d", shots[0].Minute)
	}
	if shots[1].Minute != 38 {
		t.Errorf("numeric-string minute not parsed: %d", shots[1].Minute)
	}
	if shots[0].ID != models.SyntheticShotID("m42", 0) || shots[1].ID != models.SyntheticShotID("m42", 1) {
		t.Errorf("synthetic ids: %s, %s", shots[0].ID, shots[1].ID)
	}
	// Re-running on the same payload must synthesize the same ids.
	again := Shots("m42", raw)
	if again[0].ID != shots[0].ID || again[1].ID != shots[1].ID {
		t.Error("synthetic ids are not deterministic")
	}
}

func TestShotsLegacyIDFieldPriority(t *testing.T) {
	raw := json.RawMessage(`[{"eventId": "legacy-7", "type": "shot", "outcome": "blocked"}]`)
	shots := Shots("m1", raw)
	if len(shots) != 1 || shots[0].ID != "legacy-7" {
		t.Fatalf("legacy id not used: %+v", shots)
	}
}

func TestShotsMalformedOptionalFieldsOmitted(t *testing.T) {
	raw := json.RawMessage(`[{"type": "shot", "outcome": "off", "xg": "not-a-number", "coordinates": {"x": "oops"}}]`)
	shots := Shots("m1", raw)
	if len(shots) != 1 {
		t.Fatalf("expected 1 shot, got %d", len(shots))
	}
	if shots[0].XG != nil {
		t.Error("malformed xg should be omitted, not coerced")
	}
	if shots[0].X != nil {
		t.Error("malformed x should be omitted")
	}
}

func TestShotsCoordinatesPassThrough(t *testing.T) {
	raw := json.RawMessage(`[{"type": "shot", "outcome": "on", "coordinates": {"x": 88.5, "y": 43.1}}]`)
	shots := Shots("m1", raw)
	if len(shots) != 1 || shots[0].X == nil || shots[0].Y == nil {
		t.Fatalf("coordinates missing: %+v", shots)
	}
	if *shots[0].X != 88.5 || *shots[0].Y != 43.1 {
		t.Errorf("coordinates = %v, %v", *shots[0].X, *shots[0].Y)
	}
}

func TestShotsUnparseableResponse(t *testing.T) {
	if got := Shots("m1", json.RawMessage(`"just a string"`)); got != nil {
		t.Errorf("expected nil for unparseable payload, got %v", got)
	}
	if got := Shots("m1", json.RawMessage(`{"totally": "different"}`)); got != nil {
		t.Errorf("expected nil for object without events, got %v", got)
	}
}

func TestShotsSkipsMalformedSiblings(t *testing.T) {
	raw := json.RawMessage(`{"events": [
		"not-an-object",
		{"type": "shot", "outcome": "goal", "minute": 5},
		42
	]}`)
	shots := Shots("m1", raw)
	if len(shots) != 1 || shots[0].Outcome != models.OutcomeGoal {
		t.Fatalf("expected the one valid shot to survive, got %+v", shots)
	}
}
