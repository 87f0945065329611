package normalize

import (
	"encoding/json"

	"github.com/ndmitriev/shotvalue/internal/pkg/models"
)

// Lineups normalizes a lineup response. Two families of shapes are handled:
//
//	{"teamLists": [{...team object...}, ...]}
//	{"home": {...}, "away": {...}} (also homeTeam/awayTeam)
//
// homeTeamID/awayTeamID come from the discovered match row and are used when
// a team object carries no team id of its own. In teamLists form without
// explicit ids the first entry is assumed home, the rest away; the provider
// has never documented that ordering, so treat mis-attributions here as a
// known risk.
func Lineups(raw json.RawMessage, homeTeamID, awayTeamID string) []models.LineupPlayer {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}

	var players []models.LineupPlayer

	if teamLists, ok := subList(obj, "teamLists"); ok {
		for i, entry := range teamLists {
			team, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			teamID := teamIDOf(team)
			if teamID == "" {
				if i == 0 {
					teamID = homeTeamID
				} else {
					teamID = awayTeamID
				}
			}
			players = append(players, teamPlayers(team, teamID)...)
		}
		return players
	}

	if home, ok := subObject(obj, "home", "homeTeam"); ok {
		teamID := teamIDOf(home)
		if teamID == "" {
			teamID = homeTeamID
		}
		players = append(players, teamPlayers(home, teamID)...)
	}
	if away, ok := subObject(obj, "away", "awayTeam"); ok {
		teamID := teamIDOf(away)
		if teamID == "" {
			teamID = awayTeamID
		}
		players = append(players, teamPlayers(away, teamID)...)
	}
	return players
}

func teamIDOf(team map[string]any) string {
	if id, ok := stringField(team, "teamId", "team_id"); ok {
		return id
	}
	if obj, ok := subObject(team, "team"); ok {
		if id, ok := stringField(obj, "id"); ok {
			return id
		}
	}
	return ""
}

// teamPlayers extracts players from one team object. The player list has
// carried three names across provider revisions.
func teamPlayers(team map[string]any, teamID string) []models.LineupPlayer {
	list, ok := subList(team, "players", "lineup", "teamPlayers")
	if !ok {
		return nil
	}

	out := make([]models.LineupPlayer, 0, len(list))
	for _, entry := range list {
		item, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		// Newer revisions nest the player under a "player" key; older ones
		// put the fields on the entry itself.
		player, hasPlayer := subObject(item, "player")
		if !hasPlayer {
			player = item
		}

		id, ok := stringField(player, "id", "playerId")
		if !ok {
			id, ok = stringField(item, "playerId", "id")
		}
		if !ok || id == "" {
			// No key to upsert on.
			continue
		}

		p := models.LineupPlayer{PlayerID: id, TeamID: teamID}

		if name, ok := stringField(player, "name", "shortName", "playerName"); ok {
			p.Name = name
		} else {
			p.Name = id
		}
		if pos, ok := stringField(player, "position"); ok {
			p.Position = &pos
		}
		if img, ok := imageURL(player); ok {
			p.ImageURL = &img
		}
		if minutes, ok := minutesPlayed(item, player); ok {
			p.MinutesPlayed = &minutes
		}

		out = append(out, p)
	}
	return out
}

func imageURL(player map[string]any) (string, bool) {
	if img, ok := stringField(player, "imageUrl", "image_url", "photo"); ok {
		return img, true
	}
	if img, ok := subObject(player, "image"); ok {
		if u, ok := stringField(img, "url"); ok {
			return u, true
		}
	}
	return "", false
}

// minutesPlayed resolves minutes from the candidate locations in priority
// order: entry top-level, entry stats, player top-level, player stats. First
// value that parses as an integer wins.
func minutesPlayed(entry, player map[string]any) (int, bool) {
	if m, ok := intField(entry, "minutesPlayed", "minutes_played"); ok {
		return m, true
	}
	if stats, ok := subObject(entry, "statistics", "stats"); ok {
		if m, ok := intField(stats, "minutesPlayed", "minutes_played", "minutes"); ok {
			return m, true
		}
	}
	if m, ok := intField(player, "minutesPlayed", "minutes_played"); ok {
		return m, true
	}
	if stats, ok := subObject(player, "statistics", "stats"); ok {
		if m, ok := intField(stats, "minutesPlayed", "minutes_played", "minutes"); ok {
			return m, true
		}
	}
	return 0, false
}
