// Package normalize converts the provider's loosely structured JSON into the
// canonical records the rest of the pipeline consumes. Individual malformed
// records are skipped, never fatal: a response that does not parse at all
// yields an empty result, which callers treat as "no data", not an error.
package normalize

import (
	"encoding/json"
	"strings"

	"github.com/ndmitriev/shotvalue/internal/pkg/models"
)

var (
	onTargetSynonyms = map[string]bool{
		"on_target": true, "ontarget": true, "on": true,
		"saved": true, "save": true, "attempt_saved": true, "saved_shot": true,
	}
	offTargetSynonyms = map[string]bool{
		"off_target": true, "offtarget": true, "off": true,
		"miss": true, "missed": true, "wide": true, "post": true,
	}
	blockedSynonyms = map[string]bool{
		"blocked": true, "block": true, "blocked_shot": true,
	}
)

// Shots normalizes a shot-event response for one match. The payload is
// either an object carrying an "events" list or a bare list of event
// objects. Output order follows input order; events that are not shots are
// excluded, shots with unrecognized outcome strings come through as
// OutcomeUnknown.
func Shots(matchID string, raw json.RawMessage) []models.Shot {
	events := eventList(raw)
	if len(events) == 0 {
		return nil
	}

	shots := make([]models.Shot, 0, len(events))
	for i, entry := range events {
		event, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		outcome, isShot := shotOutcome(event)
		if !isShot {
			continue
		}

		shot := models.Shot{
			MatchID: matchID,
			Outcome: outcome,
		}

		if id, ok := stringField(event, "id", "eventId", "shotId", "incidentId"); ok {
			shot.ID = id
		} else {
			shot.ID = models.SyntheticShotID(matchID, i)
		}
		shot.PlayerID = participantID(event, "player", "playerId", "player_id")
		shot.TeamID = participantID(event, "team", "teamId", "team_id")

		if minute, ok := intField(event, "minute", "time"); ok {
			shot.Minute = minute
		}
		if second, ok := intField(event, "second", "addedTime"); ok {
			shot.Second = &second
		}
		if xg, ok := floatField(event, "xg", "xG", "expectedGoals"); ok {
			shot.XG = &xg
		}
		if bodyPart, ok := stringField(event, "bodyPart", "body_part", "shotBodyType"); ok {
			shot.BodyPart = &bodyPart
		}
		if situation, ok := stringField(event, "situation", "shotSituation", "playType"); ok {
			shot.Situation = &situation
		}
		if coords, ok := subObject(event, "coordinates", "playerCoordinates"); ok {
			if x, ok := floatField(coords, "x"); ok {
				shot.X = &x
			}
			if y, ok := floatField(coords, "y"); ok {
				shot.Y = &y
			}
		} else {
			if x, ok := floatField(event, "x"); ok {
				shot.X = &x
			}
			if y, ok := floatField(event, "y"); ok {
				shot.Y = &y
			}
		}

		shots = append(shots, shot)
	}
	return shots
}

// eventList tolerates both response shapes: {"events": [...]} and [...].
func eventList(raw json.RawMessage) []any {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		if list, ok := subList(obj, "events", "incidents"); ok {
			return list
		}
		return nil
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	return nil
}

// shotOutcome classifies one event. Priority: goal by explicit type or
// outcome, then outcome synonym groups, then "shot-typed but unrecognized
// outcome" as unknown. Non-shot events report isShot=false.
func shotOutcome(event map[string]any) (models.ShotOutcome, bool) {
	typeStr, _ := stringField(event, "type", "eventType")
	typeStr = strings.ToLower(strings.TrimSpace(typeStr))
	outcomeStr, hasOutcome := stringField(event, "outcome", "shotType", "result")
	outcomeStr = strings.ToLower(strings.TrimSpace(outcomeStr))

	if typeStr == "goal" || outcomeStr == "goal" {
		return models.OutcomeGoal, true
	}

	isShotType := typeStr == "shot" || typeStr == "attempt" || strings.Contains(typeStr, "shot")
	if !isShotType && !hasOutcome {
		return "", false
	}

	switch {
	case onTargetSynonyms[outcomeStr]:
		return models.OutcomeOnTarget, true
	case offTargetSynonyms[outcomeStr]:
		return models.OutcomeOffTarget, true
	case blockedSynonyms[outcomeStr]:
		return models.OutcomeBlocked, true
	case isShotType:
		return models.OutcomeUnknown, true
	default:
		// Has an outcome field but neither a shot type nor a recognized
		// outcome string: not a shot event.
		return "", false
	}
}

// participantID reads an id from a nested sub-object ({player:{id:..}}) or
// a flat legacy field (playerId).
func participantID(event map[string]any, objectKey string, flatKeys ...string) string {
	if obj, ok := subObject(event, objectKey); ok {
		if id, ok := stringField(obj, "id"); ok {
			return id
		}
	}
	id, _ := stringField(event, flatKeys...)
	return id
}
