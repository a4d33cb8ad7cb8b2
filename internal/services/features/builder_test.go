package features

import (
	"math"
	"testing"

	"PitWall/internal/domain/models"
)

func TestBuilderBuildsFeature(t *testing.T) {
	b := NewBuilder(50)

	lap := &models.LapData{
		CompetitorID: 44,
		LapNumber:    10,
		LapTime:      91.250,
		Compound:     "MEDIUM",
		TyreAge:      9,
	}
	pos := &models.PositionData{CompetitorID: 44, GapAhead: 2.4}

	f, err := b.Build(lap, pos)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if f.CompetitorID != 44 || f.RaceLap != 10 || f.LapInStint != 9 {
		t.Fatalf("identity fields wrong: %+v", f)
	}
	if f.Compound != models.CompoundMedium {
		t.Fatalf("compound: got %s, want MEDIUM", f.Compound)
	}
	if f.InTraffic {
		t.Fatalf("2.4s gap should not count as traffic")
	}
	if math.Abs(f.TrackEvolution-0.2) > 1e-9 {
		t.Fatalf("track evolution: got %.3f, want 0.2", f.TrackEvolution)
	}
}

func TestBuilderRejectsBadLaps(t *testing.T) {
	b := NewBuilder(50)

	cases := []struct {
		name string
		lap  models.LapData
	}{
		{"negative lap time", models.LapData{CompetitorID: 1, LapNumber: 5, LapTime: -3.0}},
		{"zero lap time", models.LapData{CompetitorID: 1, LapNumber: 5, LapTime: 0}},
		{"implausibly fast", models.LapData{CompetitorID: 1, LapNumber: 5, LapTime: 4.0}},
		{"lap beyond race distance", models.LapData{CompetitorID: 1, LapNumber: 51, LapTime: 90.0}},
		{"zero lap number", models.LapData{CompetitorID: 1, LapNumber: 0, LapTime: 90.0}},
		{"negative tyre age", models.LapData{CompetitorID: 1, LapNumber: 5, LapTime: 90.0, TyreAge: -1}},
	}
	for _, tc := range cases {
		lap := tc.lap
		if _, err := b.Build(&lap, nil); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}

	// A rejected lap must not poison later observations.
	good := &models.LapData{CompetitorID: 1, LapNumber: 6, LapTime: 90.5, Compound: "SOFT", TyreAge: 5}
	f, err := b.Build(good, nil)
	if err != nil {
		t.Fatalf("valid lap rejected after failures: %v", err)
	}
	if f.BestLapTime != 90.5 {
		t.Fatalf("best lap: got %.3f, want 90.5 (rejected laps must not count)", f.BestLapTime)
	}
}

func TestBuilderTracksBestLapPerCompetitor(t *testing.T) {
	b := NewBuilder(50)

	seq := []struct {
		id   int
		lap  int
		time float64
		best float64
	}{
		{1, 1, 92.0, 92.0},
		{1, 2, 91.0, 91.0},
		{1, 3, 93.0, 91.0},
		{2, 3, 90.5, 90.5},
		{1, 4, 92.5, 91.0},
	}
	for _, s := range seq {
		f, err := b.Build(&models.LapData{CompetitorID: s.id, LapNumber: s.lap, LapTime: s.time, TyreAge: s.lap - 1}, nil)
		if err != nil {
			t.Fatalf("lap %d/%d: %v", s.id, s.lap, err)
		}
		if f.BestLapTime != s.best {
			t.Fatalf("competitor %d lap %d: best %.3f, want %.3f", s.id, s.lap, f.BestLapTime, s.best)
		}
	}
}

func TestBuilderTrafficFlag(t *testing.T) {
	b := NewBuilder(50, WithTrafficGap(1.2))

	lap := &models.LapData{CompetitorID: 7, LapNumber: 8, LapTime: 90.8, TyreAge: 7}

	f, err := b.Build(lap, &models.PositionData{CompetitorID: 7, GapAhead: 0.9})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !f.InTraffic {
		t.Fatalf("0.9s gap with 1.2s threshold should be traffic")
	}
	if f.TrafficSeverity <= 0 || f.TrafficSeverity >= 1 {
		t.Fatalf("0.9s gap severity should be partial, got %.3f", f.TrafficSeverity)
	}

	f, err = b.Build(lap, &models.PositionData{CompetitorID: 7, GapAhead: -1})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if f.InTraffic {
		t.Fatalf("leading car cannot be in traffic")
	}
	if f.TrafficSeverity != 0 {
		t.Fatalf("clean air severity should be 0, got %.3f", f.TrafficSeverity)
	}
	if f.GapAhead != -1 {
		t.Fatalf("unknown gap should stay -1, got %.2f", f.GapAhead)
	}
}
