package normalize

import (
	"encoding/json"
	"time"

	"github.com/ndmitriev/shotvalue/internal/pkg/models"
)

// ScheduledEvents normalizes one day of the scheduled-events feed into match
// rows. Entries without an id are skipped; status runs through MapStatus.
func ScheduledEvents(raw json.RawMessage, now time.Time) []models.Match {
	events := eventList(raw)
	if len(events) == 0 {
		return nil
	}

	matches := make([]models.Match, 0, len(events))
	for _, entry := range events {
		event, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		id, ok := stringField(event, "id", "eventId")
		if !ok || id == "" {
			continue
		}

		m := models.Match{ID: id}

		if tournament, ok := subObject(event, "tournament", "uniqueTournament"); ok {
			m.Tournament, _ = stringField(tournament, "name", "slug")
		} else {
			m.Tournament, _ = stringField(event, "tournament")
		}
		if home, ok := subObject(event, "homeTeam", "home"); ok {
			m.HomeTeamID, _ = stringField(home, "id")
			m.HomeTeam, _ = stringField(home, "name", "shortName")
		}
		if away, ok := subObject(event, "awayTeam", "away"); ok {
			m.AwayTeamID, _ = stringField(away, "id")
			m.AwayTeam, _ = stringField(away, "name", "shortName")
		}

		if ts, ok := intField(event, "startTimestamp", "kickoff", "startTime"); ok {
			m.KickoffUnix = int64(ts)
		}

		var statusType string
		var statusCode *int
		if status, ok := subObject(event, "status"); ok {
			statusType, _ = stringField(status, "type", "description")
			if code, ok := intField(status, "code"); ok {
				statusCode = &code
			}
		} else if code, ok := intField(event, "statusCode"); ok {
			statusCode = &code
		}
		m.Status = MapStatus(statusType, statusCode, time.Unix(m.KickoffUnix, 0), now)

		matches = append(matches, m)
	}
	return matches
}
