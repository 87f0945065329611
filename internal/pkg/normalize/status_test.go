package normalize

import (
	"testing"
	"time"

	"github.com/ndmitriev/shotvalue/internal/pkg/models"
)

func intp(n int) *int { return &n }

func TestMapStatusTextFirst(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(2 * time.Hour)
	past := now.Add(-2 * time.Hour)

	cases := []struct {
		statusType string
		statusCode *int
		kickoff    time.Time
		want       models.MatchStatus
	}{
		{"finished", nil, future, models.StatusFinished},
		{"FINISHED", nil, future, models.StatusFinished},
		{"Finished", intp(0), future, models.StatusFinished},
		{"inprogress", nil, past, models.StatusLive},
		{"live", nil, past, models.StatusLive},
		{"notstarted", nil, future, models.StatusScheduled},
		// Text absent: numeric code decides.
		{"", intp(100), future, models.StatusFinished},
		{"", intp(0), past, models.StatusScheduled},
		{"", intp(1), past, models.StatusScheduled},
		{"", intp(2), future, models.StatusLive},
		{"", intp(3), future, models.StatusLive},
		// Unrecognized text falls through to the code.
		{"postponed?", intp(100), future, models.StatusFinished},
		// Both absent: kickoff decides.
		{"", nil, past, models.StatusFinished},
		{"", nil, future, models.StatusScheduled},
		{"", nil, now, models.StatusScheduled},
		// Unrecognized code falls through to kickoff.
		{"", intp(42), past, models.StatusFinished},
	}
	for i, c := range cases {
		got := MapStatus(c.statusType, c.statusCode, c.kickoff, now)
		if got != c.want {
			t.Errorf("case %d (%q, %v): got %s, want %s", i, c.statusType, c.statusCode, got, c.want)
		}
	}
}

func TestIsNumericID(t *testing.T) {
	trues := []string{"0", "7", "12345", "000123", "98765432109876543210"}
	for _, s := range trues {
		if !IsNumericID(s) {
			t.Errorf("IsNumericID(%q) = false, want true", s)
		}
	}
	falses := []string{"", "-1", "+1", "1.5", "12a", "a12", " 1", "1 ", "John Doe", "１２３"}
	for _, s := range falses {
		if IsNumericID(s) {
			t.Errorf("IsNumericID(%q) = true, want false", s)
		}
	}
}
