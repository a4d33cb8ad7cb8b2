package usecase

import (
	"context"
	"sync"
	"testing"

	"PitWall/internal/domain/models"
	"PitWall/internal/services/degradation"
	"PitWall/internal/services/features"
	"PitWall/internal/services/strategy"
)

type fakePublisher struct {
	mu   sync.Mutex
	recs []*models.StrategyRecommendation
}

func (p *fakePublisher) PublishRecommendation(ctx context.Context, rec *models.StrategyRecommendation) error {
	p.mu.Lock()
	p.recs = append(p.recs, rec)
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) PublishBatch(ctx context.Context, recs []*models.StrategyRecommendation) error {
	for _, rec := range recs {
		_ = p.PublishRecommendation(ctx, rec)
	}
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) last() *models.StrategyRecommendation {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.recs) == 0 {
		return nil
	}
	return p.recs[len(p.recs)-1]
}

type fakeArchive struct {
	mu     sync.Mutex
	laps   []*models.LapObservation
	stints []*models.Stint
}

func (a *fakeArchive) Init(ctx context.Context) error { return nil }

func (a *fakeArchive) StoreLap(ctx context.Context, lap *models.LapObservation) error {
	a.mu.Lock()
	a.laps = append(a.laps, lap)
	a.mu.Unlock()
	return nil
}

func (a *fakeArchive) StoreStint(ctx context.Context, stint *models.Stint) error {
	a.mu.Lock()
	a.stints = append(a.stints, stint)
	a.mu.Unlock()
	return nil
}

func (a *fakeArchive) Laps(ctx context.Context, competitorID int, limit int) ([]*models.LapObservation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*models.LapObservation, 0, len(a.laps))
	for _, lap := range a.laps {
		if lap.CompetitorID == competitorID {
			out = append(out, lap)
		}
	}
	return out, nil
}

func (a *fakeArchive) AllLaps(ctx context.Context, limit int) ([]*models.LapObservation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*models.LapObservation, len(a.laps))
	copy(out, a.laps)
	return out, nil
}

func (a *fakeArchive) Health(ctx context.Context) error { return nil }
func (a *fakeArchive) Close() error                     { return nil }

func (a *fakeArchive) lapCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.laps)
}

type fakeMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{counts: make(map[string]int)} }

func (m *fakeMetrics) bump(key string) {
	m.mu.Lock()
	m.counts[key]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordLapProcessed(string)      { m.bump("lap") }
func (m *fakeMetrics) RecordOutlierRejected(string)   { m.bump("outlier") }
func (m *fakeMetrics) RecordRecommendation(string)    { m.bump("rec") }
func (m *fakeMetrics) RecordDegSlope(string, float64) {}
func (m *fakeMetrics) RecordLatency(string, float64)  {}
func (m *fakeMetrics) RecordError(kind string)        { m.bump("err_" + kind) }

func (m *fakeMetrics) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

func newTestProcessor(pub *fakePublisher, archive *fakeArchive, m *fakeMetrics) *TickProcessor {
	return NewTickProcessor(
		RaceConfig{TotalLaps: 50, PitLoss: 22.0},
		features.NewBuilder(50),
		degradation.NewRegistry(),
		strategy.NewEngine(strategy.NewCalculator(0)),
		pub, archive, m,
	)
}

func feedLaps(t *testing.T, proc *TickProcessor, competitorID, n int, base, slope float64) {
	t.Helper()
	for lap := 1; lap <= n; lap++ {
		err := proc.ProcessLap(context.Background(), &models.LapData{
			CompetitorID: competitorID,
			LapNumber:    lap,
			LapTime:      base + slope*float64(lap),
			Compound:     "MEDIUM",
			TyreAge:      lap,
		})
		if err != nil {
			t.Fatalf("lap %d: %v", lap, err)
		}
	}
}

func TestProcessLapPublishesEveryTick(t *testing.T) {
	pub := &fakePublisher{}
	archive := &fakeArchive{}
	m := newFakeMetrics()
	proc := newTestProcessor(pub, archive, m)

	feedLaps(t, proc, 7, 10, 90.0, 0.05)

	if got := m.count("lap"); got != 10 {
		t.Fatalf("expected 10 processed laps, got %d", got)
	}
	if got := m.count("rec"); got != 10 {
		t.Fatalf("expected 10 recommendations, got %d", got)
	}
	if got := archive.lapCount(); got != 10 {
		t.Fatalf("expected 10 archived laps, got %d", got)
	}
	if proc.CurrentLap() != 10 {
		t.Fatalf("unexpected current lap %d", proc.CurrentLap())
	}
}

func TestProcessLapEarlyTicksStayOutLowConfidence(t *testing.T) {
	pub := &fakePublisher{}
	proc := newTestProcessor(pub, &fakeArchive{}, newFakeMetrics())

	feedLaps(t, proc, 7, 2, 90.0, 0.05)

	rec := pub.last()
	if rec == nil {
		t.Fatalf("no recommendation published")
	}
	if rec.Recommendation != models.RecommendStayOut {
		t.Fatalf("expected stay out before estimates converge, got %s", rec.Recommendation)
	}
	if rec.Confidence >= 0.5 {
		t.Fatalf("expected low confidence, got %v", rec.Confidence)
	}
	if rec.Explanation == "" {
		t.Fatalf("fallback recommendation must still carry display text")
	}
}

func TestProcessLapFlagsOutlier(t *testing.T) {
	archive := &fakeArchive{}
	m := newFakeMetrics()
	proc := newTestProcessor(&fakePublisher{}, archive, m)

	feedLaps(t, proc, 7, 8, 90.0, 0.05)

	// A lap way off the competitor's recent pace: processed, archived with
	// the outlier flag, but never trained on.
	err := proc.ProcessLap(context.Background(), &models.LapData{
		CompetitorID: 7,
		LapNumber:    9,
		LapTime:      130.0,
		Compound:     "MEDIUM",
		TyreAge:      9,
	})
	if err != nil {
		t.Fatalf("outlier lap must not fail the tick: %v", err)
	}

	if got := m.count("outlier"); got != 1 {
		t.Fatalf("outlier rejections recorded: got %d, want 1", got)
	}
	archive.mu.Lock()
	last := archive.laps[len(archive.laps)-1]
	archive.mu.Unlock()
	if !last.Outlier {
		t.Fatalf("archived observation must carry the outlier flag")
	}

	model, ok := proc.Registry().Model(7)
	if !ok {
		t.Fatalf("no model for competitor 7")
	}
	if model.CleanLaps() != 8 {
		t.Fatalf("outlier counted as clean: %d laps", model.CleanLaps())
	}
}

func TestProcessLapRejectsInvalidRecord(t *testing.T) {
	archive := &fakeArchive{}
	m := newFakeMetrics()
	proc := newTestProcessor(&fakePublisher{}, archive, m)

	err := proc.ProcessLap(context.Background(), &models.LapData{
		CompetitorID: 7,
		LapNumber:    1,
		LapTime:      0,
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if archive.lapCount() != 0 {
		t.Fatalf("rejected lap must not be archived")
	}
	if m.count("err_lap_validate") != 1 {
		t.Fatalf("expected one validation error metric")
	}
}

func TestEvaluateAfterConvergence(t *testing.T) {
	proc := newTestProcessor(&fakePublisher{}, &fakeArchive{}, newFakeMetrics())

	feedLaps(t, proc, 7, 12, 90.0, 0.05)

	rec, err := proc.Evaluate(7)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if rec.CompetitorID != 7 {
		t.Fatalf("unexpected competitor %d", rec.CompetitorID)
	}
	if rec.Reason == "" {
		t.Fatalf("expected a reason string")
	}
	if rec.Explanation == "" {
		t.Fatalf("expected pit-wall display text")
	}
	if rec.Recommendation == models.RecommendStayOut && rec.Confidence < 0.3 {
		t.Fatalf("converged model should not report the accumulating fallback")
	}
}

func TestEvaluateUnknownCompetitor(t *testing.T) {
	proc := newTestProcessor(&fakePublisher{}, &fakeArchive{}, newFakeMetrics())
	if _, err := proc.Evaluate(99); err != models.ErrUnknownCompetitor {
		t.Fatalf("expected ErrUnknownCompetitor, got %v", err)
	}
}

func TestSnapshotReflectsRaceState(t *testing.T) {
	proc := newTestProcessor(&fakePublisher{}, &fakeArchive{}, newFakeMetrics())

	feedLaps(t, proc, 7, 10, 90.0, 0.05)
	feedLaps(t, proc, 8, 10, 91.0, 0.08)
	proc.UpdatePosition(&models.PositionData{CompetitorID: 7, Position: 1, GapAhead: -1, GapBehind: 1.8, BehindID: 8})
	proc.UpdatePosition(&models.PositionData{CompetitorID: 8, Position: 2, GapAhead: 1.8, GapBehind: -1, AheadID: 7})
	proc.SetSafetyCar(true)

	snap := proc.Snapshot()
	if snap.CurrentLap != 10 || snap.TotalLaps != 50 {
		t.Fatalf("unexpected race state %+v", snap)
	}
	if !snap.SafetyCar {
		t.Fatalf("safety car flag lost")
	}
	if len(snap.Competitors) != 2 {
		t.Fatalf("expected 2 competitors, got %d", len(snap.Competitors))
	}
	c, ok := snap.Competitor(7)
	if !ok || c.Position != 1 {
		t.Fatalf("competitor 7 snapshot wrong: %+v", c)
	}
}

func TestPositionRoundTrip(t *testing.T) {
	proc := newTestProcessor(&fakePublisher{}, &fakeArchive{}, newFakeMetrics())

	proc.UpdatePosition(&models.PositionData{CompetitorID: 3, Position: 5, GapAhead: 2.2})
	pos := proc.Position(3)
	if pos == nil || pos.Position != 5 || pos.GapAhead != 2.2 {
		t.Fatalf("unexpected position %+v", pos)
	}
	if proc.Position(4) != nil {
		t.Fatalf("expected nil for unseen competitor")
	}
}
