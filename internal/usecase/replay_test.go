package usecase

import (
	"context"
	"math"
	"testing"

	"PitWall/internal/services/degradation"
	"PitWall/internal/services/features"
	"PitWall/internal/services/strategy"
	"PitWall/pkg/logger"
)

func newTestReplayer(t *testing.T, archive *fakeArchive) *Replayer {
	t.Helper()
	lgr, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	fresh := func() *TickProcessor {
		return NewTickProcessor(
			RaceConfig{TotalLaps: 50, PitLoss: 22.0},
			features.NewBuilder(50),
			degradation.NewRegistry(),
			strategy.NewEngine(strategy.NewCalculator(0)),
			nil, nil, newFakeMetrics(),
		)
	}
	return NewReplayer(archive, fresh, lgr)
}

func TestReplayRebuildsEstimates(t *testing.T) {
	archive := &fakeArchive{}
	live := newTestProcessor(&fakePublisher{}, archive, newFakeMetrics())
	feedLaps(t, live, 1, 12, 90.0, 0.05)
	feedLaps(t, live, 2, 12, 91.0, 0.08)

	r := newTestReplayer(t, archive)
	res, err := r.Replay(context.Background(), 0, 1000)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	if res.LapsLoaded != 24 || res.LapsReplayed != 24 {
		t.Fatalf("replay counts: loaded %d replayed %d, want 24/24", res.LapsLoaded, res.LapsReplayed)
	}
	if len(res.Summaries) != 2 {
		t.Fatalf("expected summaries for both competitors, got %d", len(res.Summaries))
	}
	for _, s := range res.Summaries {
		want := 0.05
		if s.CompetitorID == 2 {
			want = 0.08
		}
		if math.Abs(s.DegSlope-want) > 0.005 {
			t.Fatalf("competitor %d rebuilt slope: got %.4f, want %.2f", s.CompetitorID, s.DegSlope, want)
		}
	}
}

func TestReplaySingleCompetitor(t *testing.T) {
	archive := &fakeArchive{}
	live := newTestProcessor(&fakePublisher{}, archive, newFakeMetrics())
	feedLaps(t, live, 1, 10, 90.0, 0.05)
	feedLaps(t, live, 2, 10, 91.0, 0.08)

	r := newTestReplayer(t, archive)
	res, err := r.Replay(context.Background(), 2, 1000)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	if res.LapsLoaded != 10 {
		t.Fatalf("expected only competitor 2 laps, loaded %d", res.LapsLoaded)
	}
	if len(res.Summaries) != 1 || res.Summaries[0].CompetitorID != 2 {
		t.Fatalf("summaries: %+v", res.Summaries)
	}
}

func TestReplayEmptyArchive(t *testing.T) {
	r := newTestReplayer(t, &fakeArchive{})
	res, err := r.Replay(context.Background(), 0, 1000)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.LapsLoaded != 0 || res.LapsReplayed != 0 || len(res.Summaries) != 0 {
		t.Fatalf("empty archive replay: %+v", res)
	}
}
