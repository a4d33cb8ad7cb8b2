package degradation

import (
	"errors"
	"math"
	"testing"

	"PitWall/internal/domain/models"
)

func feedCleanLaps(t *testing.T, m *Model, base, slope float64, from, to int) {
	t.Helper()
	for lap := from; lap <= to; lap++ {
		f := models.LapFeature{
			CompetitorID: m.competitorID,
			RaceLap:      lap,
			LapInStint:   lap,
			LapTime:      base + slope*float64(lap),
			GapAhead:     -1,
			Compound:     m.Compound(),
		}
		if _, err := m.Observe(f); err != nil {
			t.Fatalf("observe lap %d: %v", lap, err)
		}
	}
}

func TestModelWarmStartFromPrior(t *testing.T) {
	m := NewModel(1, 1, models.CompoundSoft, 88.0)
	p := m.Parameters()
	if p.BasePace != 88.0 {
		t.Fatalf("base pace hint not seeded: got %.2f, want 88.0", p.BasePace)
	}
	if p.DegSlope != PriorFor(models.CompoundSoft).DegSlope {
		t.Fatalf("fresh model slope: got %.4f, want the soft prior %.4f",
			p.DegSlope, PriorFor(models.CompoundSoft).DegSlope)
	}

	// Without a pace reference the intercept starts from a nominal lap time,
	// not zero.
	m = NewModel(1, 1, models.CompoundMedium, 0)
	if got := m.Parameters().BasePace; got != placeholderBasePace {
		t.Fatalf("unseeded base pace: got %.2f, want %.2f", got, placeholderBasePace)
	}

	// A volatile compound starts with wider uncertainty than a stable one.
	soft := NewModel(1, 1, models.CompoundSoft, 90.0)
	hard := NewModel(2, 1, models.CompoundHard, 90.0)
	softVar := soft.Parameters().Covariance[1][1]
	hardVar := hard.Parameters().Covariance[1][1]
	if softVar <= hardVar {
		t.Fatalf("soft must start less certain than hard: %.2f vs %.2f", softVar, hardVar)
	}
}

func TestModelPriorCarriesEarlyEstimate(t *testing.T) {
	// Two clean laps are nowhere near enough to identify a slope; the
	// warm-started estimate must stay near the compound prior instead of
	// collapsing toward zero.
	m := NewModel(1, 1, models.CompoundSoft, 91.0)
	feedCleanLaps(t, m, 91.0, 0.08, 1, 2)

	prior := PriorFor(models.CompoundSoft).DegSlope
	if got := m.Parameters().DegSlope; math.Abs(got-prior) > 0.05 {
		t.Fatalf("early slope drifted far from the prior: got %.4f, prior %.4f", got, prior)
	}
}

func TestModelInsufficientData(t *testing.T) {
	m := NewModel(1, 1, models.CompoundMedium, 0)
	feedCleanLaps(t, m, 90.0, 0.05, 1, 4)

	if _, err := m.PredictNext(3); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("PredictNext with 4 clean laps: got %v, want ErrInsufficientData", err)
	}
	if _, err := m.CliffRisk(); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("CliffRisk with 4 clean laps: got %v, want ErrInsufficientData", err)
	}

	feedCleanLaps(t, m, 90.0, 0.05, 5, 5)
	if _, err := m.PredictNext(3); err != nil {
		t.Fatalf("PredictNext with 5 clean laps: %v", err)
	}
}

func TestModelPredictNextIdempotent(t *testing.T) {
	m := NewModel(1, 1, models.CompoundSoft, 0)
	feedCleanLaps(t, m, 91.0, 0.08, 1, 12)

	a, err := m.PredictNext(5)
	if err != nil {
		t.Fatalf("first predict: %v", err)
	}
	b, err := m.PredictNext(5)
	if err != nil {
		t.Fatalf("second predict: %v", err)
	}
	if len(a) != 5 || len(b) != 5 {
		t.Fatalf("prediction lengths: %d, %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("predictions differ at %d without new data: %.6f vs %.6f", i, a[i], b[i])
		}
	}
	for i := 1; i < len(a); i++ {
		if a[i] < a[i-1] {
			t.Fatalf("degrading tyre should predict non-decreasing times: %.4f then %.4f", a[i-1], a[i])
		}
	}
}

func TestModelFiltersCompromisedLaps(t *testing.T) {
	m := NewModel(1, 1, models.CompoundMedium, 0)
	feedCleanLaps(t, m, 90.0, 0.05, 1, 8)
	slopeBefore := m.Parameters().DegSlope

	compromised := []models.LapFeature{
		{RaceLap: 9, LapInStint: 9, LapTime: 110.0, Caution: true, GapAhead: -1},
		{RaceLap: 10, LapInStint: 10, LapTime: 95.0, InTraffic: true, TrafficSeverity: 1, GapAhead: 0.4},
		{RaceLap: 11, LapInStint: 11, LapTime: 130.0, GapAhead: -1}, // statistical outlier
	}
	for i, f := range compromised {
		f.Compound = m.Compound()
		outlier, err := m.Observe(f)
		if err != nil {
			t.Fatalf("observe compromised lap %d: %v", f.RaceLap, err)
		}
		if wantOutlier := i == 2; outlier != wantOutlier {
			t.Fatalf("lap %d outlier flag: got %v, want %v", f.RaceLap, outlier, wantOutlier)
		}
	}

	if m.CleanLaps() != 8 {
		t.Fatalf("clean laps: got %d, want 8", m.CleanLaps())
	}
	if got := m.Parameters().DegSlope; got != slopeBefore {
		t.Fatalf("compromised laps moved the slope: %.6f -> %.6f", slopeBefore, got)
	}
	if m.StintLap() != 11 {
		t.Fatalf("stint lap should still advance: got %d, want 11", m.StintLap())
	}
}

func TestModelTrafficSeverityScalesWeight(t *testing.T) {
	light := NewModel(1, 1, models.CompoundMedium, 0)
	heavy := NewModel(2, 1, models.CompoundMedium, 0)
	feedCleanLaps(t, light, 90.0, 0.05, 1, 8)
	feedCleanLaps(t, heavy, 90.0, 0.05, 1, 8)
	base := light.Parameters().DegSlope

	// Same slow lap in dirty air; the barely-affected lap should pull the
	// estimate harder than the badly compromised one.
	lap := models.LapFeature{RaceLap: 9, LapInStint: 9, LapTime: 92.0, InTraffic: true, GapAhead: 1.5, Compound: models.CompoundMedium}
	lap.TrafficSeverity = 0.2
	if _, err := light.Observe(lap); err != nil {
		t.Fatalf("light traffic lap: %v", err)
	}
	lap.TrafficSeverity = 0.9
	if _, err := heavy.Observe(lap); err != nil {
		t.Fatalf("heavy traffic lap: %v", err)
	}

	dLight := math.Abs(light.Parameters().DegSlope - base)
	dHeavy := math.Abs(heavy.Parameters().DegSlope - base)
	if dLight <= dHeavy {
		t.Fatalf("light traffic must carry more weight: moved %.6f vs %.6f", dLight, dHeavy)
	}
	if dHeavy == 0 {
		t.Fatalf("a partially compromised lap must still nudge the estimate")
	}
	if light.CleanLaps() != 8 || heavy.CleanLaps() != 8 {
		t.Fatalf("traffic laps must not count as clean: %d, %d", light.CleanLaps(), heavy.CleanLaps())
	}
}

func TestModelSealRejectsObservations(t *testing.T) {
	m := NewModel(1, 1, models.CompoundHard, 0)
	feedCleanLaps(t, m, 90.0, 0.03, 1, 6)
	m.Seal()

	_, err := m.Observe(models.LapFeature{RaceLap: 7, LapInStint: 7, LapTime: 90.2, GapAhead: -1, Compound: m.Compound()})
	if !errors.Is(err, models.ErrStaleModel) {
		t.Fatalf("observe after seal: got %v, want ErrStaleModel", err)
	}

	// Reads stay valid on a sealed model.
	if _, err := m.PredictNext(3); err != nil {
		t.Fatalf("predict on sealed model: %v", err)
	}
}

func TestCliffRiskMonotoneInSlope(t *testing.T) {
	gentle := NewModel(1, 1, models.CompoundMedium, 0)
	steep := NewModel(2, 1, models.CompoundMedium, 0)
	feedCleanLaps(t, gentle, 90.0, 0.03, 1, 15)
	feedCleanLaps(t, steep, 90.0, 0.09, 1, 15)

	rGentle, err := gentle.CliffRisk()
	if err != nil {
		t.Fatalf("gentle risk: %v", err)
	}
	rSteep, err := steep.CliffRisk()
	if err != nil {
		t.Fatalf("steep risk: %v", err)
	}
	if rSteep <= rGentle {
		t.Fatalf("steeper slope must score strictly higher risk: %.4f vs %.4f", rSteep, rGentle)
	}
	if rGentle < 0 || rSteep > 1 {
		t.Fatalf("risk out of [0,1]: %.4f, %.4f", rGentle, rSteep)
	}
}

func TestCliffRiskCompoundSensitivity(t *testing.T) {
	// Same observed slope and tyre age; a soft is far closer to its cliff
	// than a hard at 20 laps.
	soft := NewModel(1, 1, models.CompoundSoft, 0)
	hard := NewModel(2, 1, models.CompoundHard, 0)
	feedCleanLaps(t, soft, 90.0, 0.05, 1, 20)
	feedCleanLaps(t, hard, 90.0, 0.05, 1, 20)

	rSoft, err := soft.CliffRisk()
	if err != nil {
		t.Fatalf("soft risk: %v", err)
	}
	rHard, err := hard.CliffRisk()
	if err != nil {
		t.Fatalf("hard risk: %v", err)
	}
	if rSoft <= rHard {
		t.Fatalf("soft at its cliff lap must outscore hard: %.4f vs %.4f", rSoft, rHard)
	}
}

func TestCliffRiskRisesPastCliffLap(t *testing.T) {
	m := NewModel(1, 1, models.CompoundSoft, 0)
	feedCleanLaps(t, m, 90.0, 0.08, 1, 19)

	atCliff, err := m.CliffRisk()
	if err != nil {
		t.Fatalf("risk at cliff: %v", err)
	}
	feedCleanLaps(t, m, 90.0, 0.08, 20, 24)
	past, err := m.CliffRisk()
	if err != nil {
		t.Fatalf("risk past cliff: %v", err)
	}
	if past <= atCliff {
		t.Fatalf("risk must climb past the cliff lap: %.4f -> %.4f", atCliff, past)
	}
	if math.Abs(past-1) > 1 {
		t.Fatalf("risk out of range: %.4f", past)
	}
}
