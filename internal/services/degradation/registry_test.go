package degradation

import (
	"errors"
	"math"
	"testing"

	"PitWall/internal/domain/models"
)

func observeLap(t *testing.T, r *Registry, id, raceLap, stintLap int, lapTime float64, compound models.Compound) {
	t.Helper()
	_, err := r.Observe(models.LapFeature{
		CompetitorID: id,
		RaceLap:      raceLap,
		LapInStint:   stintLap,
		LapTime:      lapTime,
		GapAhead:     -1,
		Compound:     compound,
	})
	if err != nil {
		t.Fatalf("competitor %d lap %d: %v", id, raceLap, err)
	}
}

func TestRegistryIndependentCompetitors(t *testing.T) {
	r := NewRegistry()

	// Two competitors degrading at 60 and 90 ms/lap, interleaved.
	for lap := 1; lap <= 20; lap++ {
		observeLap(t, r, 1, lap, lap, 90.0+0.060*float64(lap), models.CompoundMedium)
		observeLap(t, r, 2, lap, lap, 90.5+0.090*float64(lap), models.CompoundMedium)
	}

	m1, ok := r.Model(1)
	if !ok {
		t.Fatalf("no model for competitor 1")
	}
	m2, ok := r.Model(2)
	if !ok {
		t.Fatalf("no model for competitor 2")
	}

	if got := m1.Parameters().DegSlope; math.Abs(got-0.060) > 0.001 {
		t.Fatalf("competitor 1 slope: got %.4f, want 0.060 +-0.001", got)
	}
	if got := m2.Parameters().DegSlope; math.Abs(got-0.090) > 0.001 {
		t.Fatalf("competitor 2 slope: got %.4f, want 0.090 +-0.001", got)
	}

	r1, err := m1.CliffRisk()
	if err != nil {
		t.Fatalf("risk 1: %v", err)
	}
	r2, err := m2.CliffRisk()
	if err != nil {
		t.Fatalf("risk 2: %v", err)
	}
	if r2 <= r1 {
		t.Fatalf("faster-degrading competitor must score higher risk: %.4f vs %.4f", r2, r1)
	}
}

func TestRegistryStintBoundaryOnAgeReset(t *testing.T) {
	sealed := 0
	var sealedStint *Model
	r := NewRegistry(WithSealHook(func(id int, m *Model) {
		sealed++
		sealedStint = m
	}))

	for lap := 1; lap <= 12; lap++ {
		observeLap(t, r, 7, lap, lap, 91.0+0.08*float64(lap), models.CompoundSoft)
	}
	// Pit stop: tyre age resets on a new compound.
	observeLap(t, r, 7, 13, 0, 92.5, models.CompoundHard)

	if sealed != 1 {
		t.Fatalf("seal hook fired %d times, want 1", sealed)
	}
	if sealedStint == nil || !sealedStint.Sealed() {
		t.Fatalf("sealed stint not frozen")
	}
	if sealedStint.StintNumber() != 1 {
		t.Fatalf("sealed stint number: got %d, want 1", sealedStint.StintNumber())
	}

	m, ok := r.Model(7)
	if !ok {
		t.Fatalf("no live model after rotation")
	}
	if m.StintNumber() != 2 || m.Compound() != models.CompoundHard {
		t.Fatalf("live model: stint %d compound %s, want 2 HARD", m.StintNumber(), m.Compound())
	}
	if m.CleanLaps() != 0 {
		t.Fatalf("new stint inherited clean laps: %d", m.CleanLaps())
	}

	// The sealed model rejects further laps, the new one accepts them.
	_, err := sealedStint.Observe(models.LapFeature{CompetitorID: 7, RaceLap: 14, LapInStint: 1, LapTime: 92.0, GapAhead: -1, Compound: models.CompoundHard})
	if !errors.Is(err, models.ErrStaleModel) {
		t.Fatalf("sealed model accepted a lap: %v", err)
	}
	observeLap(t, r, 7, 14, 1, 92.0, models.CompoundHard)
}

func TestRegistryStintBoundaryOnCompoundChange(t *testing.T) {
	r := NewRegistry()

	for lap := 1; lap <= 6; lap++ {
		observeLap(t, r, 3, lap, lap, 90.0+0.05*float64(lap), models.CompoundMedium)
	}
	// Compound flips without the age counter resetting; still a new stint.
	observeLap(t, r, 3, 7, 7, 90.5, models.CompoundSoft)

	m, _ := r.Model(3)
	if m.StintNumber() != 2 || m.Compound() != models.CompoundSoft {
		t.Fatalf("stint %d compound %s, want 2 SOFT", m.StintNumber(), m.Compound())
	}
}

func TestRegistrySummary(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Summary(99, 0); !errors.Is(err, models.ErrUnknownCompetitor) {
		t.Fatalf("unknown competitor: got %v, want ErrUnknownCompetitor", err)
	}

	for lap := 1; lap <= 3; lap++ {
		observeLap(t, r, 5, lap, lap, 90.0+0.05*float64(lap), models.CompoundMedium)
	}
	if _, err := r.Summary(5, 0); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("3 clean laps: got %v, want ErrInsufficientData", err)
	}

	for lap := 4; lap <= 10; lap++ {
		observeLap(t, r, 5, lap, lap, 90.0+0.05*float64(lap), models.CompoundMedium)
	}
	s, err := r.Summary(5, 0)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.CompetitorID != 5 || s.CleanLaps != 10 || len(s.PredictedNext) != defaultPredictLaps {
		t.Fatalf("summary fields: %+v", s)
	}
	if math.Abs(s.DegSlope-0.05) > 0.005 {
		t.Fatalf("summary slope: got %.4f, want 0.05", s.DegSlope)
	}

	// The caller picks the prediction horizon.
	s, err = r.Summary(5, 3)
	if err != nil {
		t.Fatalf("summary k=3: %v", err)
	}
	if len(s.PredictedNext) != 3 {
		t.Fatalf("k=3 predictions: got %d", len(s.PredictedNext))
	}
}

func TestRegistryMinCleanLapsOption(t *testing.T) {
	r := NewRegistry(WithRegistryMinCleanLaps(3))

	for lap := 1; lap <= 3; lap++ {
		observeLap(t, r, 4, lap, lap, 90.0+0.05*float64(lap), models.CompoundMedium)
	}
	if _, err := r.Summary(4, 0); err != nil {
		t.Fatalf("3 clean laps with a lowered minimum: %v", err)
	}
}

func TestRegistrySnapshot(t *testing.T) {
	r := NewRegistry()

	for lap := 1; lap <= 10; lap++ {
		observeLap(t, r, 1, lap, lap, 90.0+0.06*float64(lap), models.CompoundMedium)
	}
	// Competitor 2 has too few laps; snapshot falls back to the prior.
	observeLap(t, r, 2, 10, 1, 91.0, models.CompoundHard)

	positions := map[int]*models.PositionData{
		1: {CompetitorID: 1, Position: 1, GapToLeader: 0},
		2: {CompetitorID: 2, Position: 2, GapToLeader: 3.2},
	}
	snap := r.Snapshot(10, 50, 22.0, positions)

	if snap.CurrentLap != 10 || snap.TotalLaps != 50 || snap.Remaining() != 40 {
		t.Fatalf("snapshot race state: %+v", snap)
	}
	c1, ok := snap.Competitor(1)
	if !ok {
		t.Fatalf("competitor 1 missing from snapshot")
	}
	if math.Abs(c1.DegSlope-0.06) > 0.005 || c1.Position != 1 {
		t.Fatalf("competitor 1 snapshot: %+v", c1)
	}
	c2, ok := snap.Competitor(2)
	if !ok {
		t.Fatalf("competitor 2 missing from snapshot")
	}
	if c2.DegSlope != PriorFor(models.CompoundHard).DegSlope {
		t.Fatalf("competitor 2 should carry the prior slope, got %.4f", c2.DegSlope)
	}
	if c2.GapToLeader != 3.2 {
		t.Fatalf("competitor 2 gap: got %.2f, want 3.2", c2.GapToLeader)
	}
}
