package usecase

import (
	"context"
	"testing"

	"PitWall/internal/domain/models"
	"PitWall/pkg/cache"
)

type stubSimulator struct {
	calls int
	err   error
}

func (s *stubSimulator) Run(snap models.RaceSnapshot, competitorID, pitLap, trials int) (models.SimulationOutcome, error) {
	s.calls++
	if s.err != nil {
		return models.SimulationOutcome{}, s.err
	}
	return models.SimulationOutcome{
		CompetitorID:     competitorID,
		PitLap:           pitLap,
		Trials:           trials,
		RequestedTrials:  trials,
		ExpectedPosition: 2.5,
		Confidence:       1.0,
	}, nil
}

func newTestAggregator(t *testing.T, c cache.Service) (*StrategyAggregator, *TickProcessor, *stubSimulator) {
	t.Helper()
	proc := newTestProcessor(&fakePublisher{}, &fakeArchive{}, newFakeMetrics())
	sim := &stubSimulator{}
	return NewStrategyAggregator(proc, sim, c), proc, sim
}

func TestAggregatorDegradationServedFromCache(t *testing.T) {
	agg, proc, _ := newTestAggregator(t, cache.NewMemoryCache())
	feedLaps(t, proc, 7, 12, 90.0, 0.05)

	first, err := agg.Degradation(context.Background(), 7, 5)
	if err != nil {
		t.Fatalf("degradation: %v", err)
	}

	// More laps change the live model; a cached read must not see them.
	for lap := 13; lap <= 18; lap++ {
		err := proc.ProcessLap(context.Background(), &models.LapData{
			CompetitorID: 7,
			LapNumber:    lap,
			LapTime:      90.0 + 0.05*float64(lap),
			Compound:     "MEDIUM",
			TyreAge:      lap,
		})
		if err != nil {
			t.Fatalf("lap %d: %v", lap, err)
		}
	}

	second, err := agg.Degradation(context.Background(), 7, 5)
	if err != nil {
		t.Fatalf("cached degradation: %v", err)
	}
	if second.CleanLaps != first.CleanLaps {
		t.Fatalf("expected cached summary with %d clean laps, got %d", first.CleanLaps, second.CleanLaps)
	}

	// A different horizon is a different cache entry, not a stale hit.
	other, err := agg.Degradation(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("degradation k=3: %v", err)
	}
	if len(other.PredictedNext) != 3 {
		t.Fatalf("k=3 predictions: got %d", len(other.PredictedNext))
	}
}

func TestAggregatorDegradationUnknownCompetitor(t *testing.T) {
	agg, _, _ := newTestAggregator(t, cache.NewMemoryCache())
	if _, err := agg.Degradation(context.Background(), 99, 0); err != models.ErrUnknownCompetitor {
		t.Fatalf("expected ErrUnknownCompetitor, got %v", err)
	}
}

func TestAggregatorSimulateDelegates(t *testing.T) {
	agg, proc, sim := newTestAggregator(t, nil)
	feedLaps(t, proc, 7, 12, 90.0, 0.05)

	out, err := agg.Simulate(context.Background(), 7, 25, 200)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if sim.calls != 1 {
		t.Fatalf("expected one simulator call, got %d", sim.calls)
	}
	if out.CompetitorID != 7 || out.PitLap != 25 || out.Trials != 200 {
		t.Fatalf("request parameters lost: %+v", out)
	}
}

func TestAggregatorSimulationResultLifecycle(t *testing.T) {
	agg, _, _ := newTestAggregator(t, cache.NewMemoryCache())

	stored := &models.SimulationOutcome{CompetitorID: 7, PitLap: 25, Trials: 200, RequestedTrials: 200}
	if err := agg.StoreSimulationResult(context.Background(), "job-1", stored); err != nil {
		t.Fatalf("store result: %v", err)
	}

	got, err := agg.SimulationResult(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("fetch result: %v", err)
	}
	if got.CompetitorID != 7 || got.Trials != 200 {
		t.Fatalf("result corrupted: %+v", got)
	}

	if _, err := agg.SimulationResult(context.Background(), "missing"); err == nil {
		t.Fatalf("expected miss for unknown job id")
	}
}

func TestAggregatorSimulationResultWithoutCache(t *testing.T) {
	agg, _, _ := newTestAggregator(t, nil)
	if err := agg.StoreSimulationResult(context.Background(), "job-1", &models.SimulationOutcome{}); err == nil {
		t.Fatalf("store must fail without a cache")
	}
	if _, err := agg.SimulationResult(context.Background(), "job-1"); err == nil {
		t.Fatalf("fetch must fail without a cache")
	}
}
