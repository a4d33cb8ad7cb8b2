package strategy

import (
	"strings"
	"testing"

	"PitWall/internal/domain/models"
)

func newTestEngine() *Engine {
	return NewEngine(NewCalculator(0))
}

func TestEvaluateCriticalCliffForcesPit(t *testing.T) {
	e := newTestEngine()

	rec := e.Evaluate(EvaluationInput{
		CompetitorID: 44, CurrentLap: 25, TotalLaps: 60, Position: 3,
		DegSlope: 0.14, CliffRisk: 0.92, CurrentPace: 93.5, TyreAge: 22,
		Compound: models.CompoundSoft, PitLoss: 22.0, GapAhead: 4.0, GapBehind: 6.0,
	})
	if rec.Recommendation != models.RecommendPitNow {
		t.Fatalf("critical cliff risk: got %s, want PIT_NOW", rec.Recommendation)
	}
	if rec.Confidence < 0.85 {
		t.Fatalf("forced stop confidence too low: %.2f", rec.Confidence)
	}
	if rec.NextCompound == "" {
		t.Fatalf("a pit recommendation must name the next compound")
	}
}

func TestEvaluateStayOutOnFreshTyres(t *testing.T) {
	e := newTestEngine()

	rec := e.Evaluate(EvaluationInput{
		CompetitorID: 1, CurrentLap: 8, TotalLaps: 60, Position: 1,
		DegSlope: 0.03, CliffRisk: 0.1, CurrentPace: 90.2, TyreAge: 8,
		Compound: models.CompoundMedium, PitLoss: 22.0, GapAhead: -1, GapBehind: 12.0,
	})
	if rec.Recommendation != models.RecommendStayOut {
		t.Fatalf("fresh tyres, low risk: got %s, want STAY_OUT", rec.Recommendation)
	}
	if rec.UndercutThreat {
		t.Fatalf("leader cannot face an undercut from ahead")
	}
	if len(rec.Alternatives) == 0 {
		t.Fatalf("stay-out should offer the optimal pit lap as an alternative")
	}
}

func TestEvaluateExtendStintNearFinish(t *testing.T) {
	e := newTestEngine()

	rec := e.Evaluate(EvaluationInput{
		CompetitorID: 16, CurrentLap: 52, TotalLaps: 60, Position: 5,
		DegSlope: 0.04, CliffRisk: 0.2, CurrentPace: 91.0, TyreAge: 9,
		Compound: models.CompoundHard, PitLoss: 22.0, GapAhead: 3.0, GapBehind: 2.5,
	})
	if rec.Recommendation != models.RecommendExtendStint {
		t.Fatalf("8 laps left on young tyres: got %s, want EXTEND_STINT", rec.Recommendation)
	}
	if rec.Window.IdealLap != 0 {
		t.Fatalf("no stop should be scheduled with 8 laps left, ideal %d", rec.Window.IdealLap)
	}
}

func TestEvaluateUndercutThreatDetected(t *testing.T) {
	e := newTestEngine()

	rec := e.Evaluate(EvaluationInput{
		CompetitorID: 55, CurrentLap: 20, TotalLaps: 60, Position: 6,
		DegSlope: 0.04, CliffRisk: 0.3, CurrentPace: 91.5, TyreAge: 18,
		Compound: models.CompoundMedium, PitLoss: 22.0,
		GapAhead: 2.0, AheadDeg: 0.10,
		GapBehind: 15.0, BehindDeg: 0.05,
	})
	if !rec.UndercutThreat {
		t.Fatalf("car ahead 2s away degrading 60ms/lap faster is an undercut threat")
	}
	if rec.Recommendation != models.RecommendPitNow {
		t.Fatalf("undercut threat with the window open: got %s, want PIT_NOW", rec.Recommendation)
	}
}

func TestEvaluateCarriesExplanation(t *testing.T) {
	e := newTestEngine()

	rec := e.Evaluate(EvaluationInput{
		CompetitorID: 55, CurrentLap: 20, TotalLaps: 60, Position: 6,
		DegSlope: 0.04, CliffRisk: 0.3, CurrentPace: 91.5, TyreAge: 18,
		Compound: models.CompoundMedium, PitLoss: 22.0,
		GapAhead: 2.0, AheadDeg: 0.10,
		GapBehind: 15.0, BehindDeg: 0.05,
	})

	if rec.Explanation == "" {
		t.Fatalf("every recommendation must carry display text")
	}
	if rec.Explanation != Explain(rec) {
		t.Fatalf("explanation out of sync with the recommendation:\n%s", rec.Explanation)
	}

	// The undercut chance shows up as a concrete alternative line.
	found := false
	for _, alt := range rec.Alternatives {
		if strings.Contains(alt, "undercut") {
			found = true
		}
	}
	if !found {
		t.Fatalf("undercut feasibility missing from alternatives: %v", rec.Alternatives)
	}
}

func TestEvaluateOvercutOpportunity(t *testing.T) {
	e := newTestEngine()

	rec := e.Evaluate(EvaluationInput{
		CompetitorID: 4, CurrentLap: 18, TotalLaps: 60, Position: 7,
		DegSlope: 0.03, CliffRisk: 0.2, CurrentPace: 91.0, TyreAge: 10,
		Compound: models.CompoundHard, PitLoss: 22.0,
		GapAhead: 30.0, AheadDeg: 0.03,
		GapBehind: 4.0, BehindDeg: 0.09,
	})
	if !rec.OvercutOpportunity {
		t.Fatalf("slower-degrading car with 4s cover should see an overcut")
	}
}

func TestEvaluateSafetyCarInWindow(t *testing.T) {
	e := newTestEngine()

	rec := e.Evaluate(EvaluationInput{
		CompetitorID: 81, CurrentLap: 24, TotalLaps: 60, Position: 4,
		DegSlope: 0.08, CliffRisk: 0.5, CurrentPace: 92.0, TyreAge: 20,
		Compound: models.CompoundMedium, PitLoss: 22.0, GapAhead: 8.0, GapBehind: 9.0,
		SafetyCar: true,
	})
	if rec.Recommendation != models.RecommendPitNow {
		t.Fatalf("safety car inside the window: got %s, want PIT_NOW", rec.Recommendation)
	}
	if rec.Confidence != 0.95 {
		t.Fatalf("safety car stop confidence: got %.2f, want 0.95", rec.Confidence)
	}
}

func TestNextCompoundSelection(t *testing.T) {
	cases := []struct {
		current   models.Compound
		remaining int
		want      models.Compound
	}{
		{models.CompoundSoft, 40, models.CompoundMedium},
		{models.CompoundMedium, 40, models.CompoundHard},
		{models.CompoundHard, 20, models.CompoundMedium},
		{models.CompoundMedium, 12, models.CompoundSoft},
	}
	for _, c := range cases {
		if got := nextCompound(c.current, c.remaining); got != c.want {
			t.Fatalf("nextCompound(%s, %d): got %s, want %s", c.current, c.remaining, got, c.want)
		}
	}
}

func TestExplainRendersPlainText(t *testing.T) {
	e := newTestEngine()
	rec := e.Evaluate(EvaluationInput{
		CompetitorID: 44, CurrentLap: 25, TotalLaps: 60, Position: 3,
		DegSlope: 0.14, CliffRisk: 0.92, CurrentPace: 93.5, TyreAge: 22,
		Compound: models.CompoundSoft, PitLoss: 22.0, GapAhead: 4.0, GapBehind: 6.0,
	})

	text := Explain(rec)
	if !strings.Contains(text, "PIT_NOW") {
		t.Fatalf("explanation missing the verdict:\n%s", text)
	}
	if !strings.Contains(text, "confidence") {
		t.Fatalf("explanation missing confidence:\n%s", text)
	}

	if got := ExplainWindow(models.PitWindow{}); !strings.Contains(got, "no stop") {
		t.Fatalf("sentinel window explanation: %q", got)
	}
	if got := ExplainCliffRisk(0.9, models.CompoundSoft); !strings.Contains(got, "imminent") {
		t.Fatalf("high risk explanation: %q", got)
	}
}
