package normalize

import (
	"strings"
	"time"

	"github.com/ndmitriev/shotvalue/internal/pkg/models"
)

// MapStatus classifies a match by a priority chain: explicit status-type
// text, then numeric status code, then kickoff time against now. The chain
// always terminates in one of the three statuses.
func MapStatus(statusType string, statusCode *int, kickoff time.Time, now time.Time) models.MatchStatus {
	switch strings.ToLower(strings.TrimSpace(statusType)) {
	case "finished":
		return models.StatusFinished
	case "inprogress", "live":
		return models.StatusLive
	case "notstarted":
		return models.StatusScheduled
	}

	if statusCode != nil {
		switch *statusCode {
		case 100:
			return models.StatusFinished
		case 0, 1:
			return models.StatusScheduled
		case 2, 3:
			return models.StatusLive
		}
	}

	if kickoff.Before(now) {
		return models.StatusFinished
	}
	return models.StatusScheduled
}

// IsNumericID reports whether s consists exclusively of decimal digits. The
// provider assigns numeric placeholder "names" to players it has not
// resolved yet; those must never overwrite a real display name.
func IsNumericID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
