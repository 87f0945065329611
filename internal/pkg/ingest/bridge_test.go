package ingest

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/ndmitriev/shotvalue/internal/pkg/config"
	"github.com/ndmitriev/shotvalue/internal/pkg/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// seedAppearance records a finished match the player appeared in, with the
// given number of shots (possibly zero).
func seedAppearance(store *memStore, matchID, playerID string, kickoff int64, shots int) {
	store.matches[matchID] = models.Match{ID: matchID, KickoffUnix: kickoff, Status: models.StatusFinished}
	store.links[matchID+"|"+playerID] = models.LineupPlayer{PlayerID: playerID}
	for i := 0; i < shots; i++ {
		id := fmt.Sprintf("%s-%s-%d", matchID, playerID, i)
		store.shots[id] = models.Shot{ID: id, MatchID: matchID, PlayerID: playerID}
	}
}

func TestComputeForm(t *testing.T) {
	form := computeForm("p1", []int{2, 4}, 2.5)
	if form.Matches != 2 {
		t.Errorf("matches = %d", form.Matches)
	}
	if !almostEqual(form.Mean, 3) {
		t.Errorf("mean = %f", form.Mean)
	}
	if !almostEqual(form.StdDev, 1) {
		t.Errorf("stddev = %f", form.StdDev)
	}
	if !almostEqual(form.CV, 1.0/3.0) {
		t.Errorf("cv = %f", form.CV)
	}
	if !almostEqual(form.HitRate, 0.5) {
		t.Errorf("hit rate = %f", form.HitRate)
	}
}

func TestComputeFormZeroMean(t *testing.T) {
	form := computeForm("p1", []int{0, 0, 0}, 1.5)
	if !almostEqual(form.Mean, 0) || !almostEqual(form.CV, 0) {
		t.Errorf("zero series: mean=%f cv=%f", form.Mean, form.CV)
	}
	if !almostEqual(form.HitRate, 0) {
		t.Errorf("hit rate = %f", form.HitRate)
	}
}

func TestComputeFormLineAtCount(t *testing.T) {
	// "Met or exceeded" the line: a count exactly on the line is a hit.
	form := computeForm("p1", []int{2, 2, 2}, 2)
	if !almostEqual(form.HitRate, 1) {
		t.Errorf("hit rate = %f, want 1", form.HitRate)
	}
}

func TestBridgeUpsertsForms(t *testing.T) {
	store := newMemStore()
	seedAppearance(store, "m1", "p1", 300, 1)
	seedAppearance(store, "m2", "p1", 200, 3)
	seedAppearance(store, "m3", "p1", 100, 2)
	// p2 only appeared in a match that has not finished yet.
	store.matches["m4"] = models.Match{ID: "m4", KickoffUnix: 400, Status: models.StatusLive}
	store.links["m4|p2"] = models.LineupPlayer{PlayerID: "p2"}

	cfg := config.Pipeline{Concurrency: 2, DaysBack: 1, ShotLine: 1.5, FormWindow: 10}
	o := NewOrchestrator(store, nil, &fakeFetcher{}, nil, baseURL, cfg)

	if err := o.Bridge(context.Background()); err != nil {
		t.Fatalf("Bridge: %v", err)
	}
	form, ok := store.forms["p1"]
	if !ok {
		t.Fatal("form for p1 missing")
	}
	if !almostEqual(form.Mean, 2) {
		t.Errorf("mean = %f", form.Mean)
	}
	if form.Line != 1.5 {
		t.Errorf("line = %f", form.Line)
	}
	// 3 and 2 are at or over 1.5; 1 is under.
	if !almostEqual(form.HitRate, 2.0/3.0) {
		t.Errorf("hit rate = %f", form.HitRate)
	}
	if _, ok := store.forms["p2"]; ok {
		t.Error("unfinished-only appearances should not produce a form row")
	}
}

func TestBridgeCountsZeroShotAppearances(t *testing.T) {
	store := newMemStore()
	// One big match and three blanks: the blanks must drag the numbers down.
	seedAppearance(store, "m1", "p1", 400, 3)
	seedAppearance(store, "m2", "p1", 300, 0)
	seedAppearance(store, "m3", "p1", 200, 0)
	seedAppearance(store, "m4", "p1", 100, 0)

	cfg := config.Pipeline{Concurrency: 2, DaysBack: 1, ShotLine: 1.5, FormWindow: 10}
	o := NewOrchestrator(store, nil, &fakeFetcher{}, nil, baseURL, cfg)

	if err := o.Bridge(context.Background()); err != nil {
		t.Fatalf("Bridge: %v", err)
	}
	form, ok := store.forms["p1"]
	if !ok {
		t.Fatal("form for p1 missing")
	}
	if form.Matches != 4 {
		t.Errorf("matches = %d, want 4 (zero-shot appearances must count)", form.Matches)
	}
	if !almostEqual(form.Mean, 0.75) {
		t.Errorf("mean = %f, want 0.75", form.Mean)
	}
	if !almostEqual(form.HitRate, 0.25) {
		t.Errorf("hit rate = %f, want 0.25", form.HitRate)
	}
}

func TestBridgeWindowKeepsNewestMatches(t *testing.T) {
	store := newMemStore()
	// Five appearances, window of 3: only the newest three count.
	seedAppearance(store, "m1", "p1", 500, 0)
	seedAppearance(store, "m2", "p1", 400, 2)
	seedAppearance(store, "m3", "p1", 300, 0)
	seedAppearance(store, "m4", "p1", 200, 5)
	seedAppearance(store, "m5", "p1", 100, 5)

	cfg := config.Pipeline{Concurrency: 2, DaysBack: 1, ShotLine: 1.5, FormWindow: 3}
	o := NewOrchestrator(store, nil, &fakeFetcher{}, nil, baseURL, cfg)

	if err := o.Bridge(context.Background()); err != nil {
		t.Fatalf("Bridge: %v", err)
	}
	form := store.forms["p1"]
	if form.Matches != 3 {
		t.Errorf("matches = %d, want 3", form.Matches)
	}
	// Series is [0, 2, 0]; the older five-shot matches fall outside the window.
	if !almostEqual(form.Mean, 2.0/3.0) {
		t.Errorf("mean = %f", form.Mean)
	}
	if !almostEqual(form.HitRate, 1.0/3.0) {
		t.Errorf("hit rate = %f", form.HitRate)
	}
}
