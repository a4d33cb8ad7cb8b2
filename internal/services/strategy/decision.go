package strategy

import (
	"fmt"
	"time"

	"PitWall/internal/domain/models"
	"PitWall/internal/domain/service"
)

// EvaluationInput carries the race-state slice one evaluation reads.
type EvaluationInput struct {
	CompetitorID int
	CurrentLap   int
	TotalLaps    int
	Position     int
	DegSlope     float64
	CliffRisk    float64
	CurrentPace  float64
	TyreAge      int
	Compound     models.Compound
	PitLoss      float64
	GapAhead     float64 // <0 means leading/unknown
	GapBehind    float64 // <0 means last/unknown
	AheadDeg     float64 // s/lap; 0 falls back to a nominal rate
	BehindDeg    float64
	SafetyCar    bool
}

// nominalDeg stands in when a neighbor's degradation is unknown.
const nominalDeg = 0.05

// Engine turns degradation estimates plus race position into a single
// recommendation per competitor per lap. Stateless; every Evaluate call is
// a full recomputation.
type Engine struct {
	calc service.WindowCalculator
}

// NewEngine creates a decision engine around the given window calculator.
func NewEngine(calc service.WindowCalculator) *Engine {
	return &Engine{calc: calc}
}

// Evaluate produces the strategy recommendation for one competitor.
func (e *Engine) Evaluate(in EvaluationInput) *models.StrategyRecommendation {
	remaining := in.TotalLaps - in.CurrentLap
	aheadDeg := in.AheadDeg
	if aheadDeg == 0 {
		aheadDeg = nominalDeg
	}
	behindDeg := in.BehindDeg
	if behindDeg == 0 {
		behindDeg = nominalDeg
	}

	window := e.calc.FindOptimalWindow(service.WindowInput{
		CurrentLap:  in.CurrentLap,
		TotalLaps:   in.TotalLaps,
		DegSlope:    in.DegSlope,
		CurrentPace: in.CurrentPace,
		PitLoss:     in.PitLoss,
		TyreAge:     in.TyreAge,
		Compound:    in.Compound,
		CliffRisk:   in.CliffRisk,
	})

	undercut := false
	if in.GapAhead >= 0 && in.GapAhead < in.PitLoss+3.0 && aheadDeg > in.DegSlope+undercutDegMargin {
		undercut = true
	}
	overcut := false
	if in.GapBehind >= 0 && in.GapBehind < in.PitLoss && in.DegSlope < behindDeg-undercutDegMargin {
		overcut = true
	}

	verdict := ShouldPitNow(in.CurrentLap, window, in.CliffRisk, undercut, in.SafetyCar)

	rec := &models.StrategyRecommendation{
		CompetitorID:       in.CompetitorID,
		Window:             window,
		UndercutThreat:     undercut,
		OvercutOpportunity: overcut,
		GeneratedAt:        time.Now().UTC(),
	}

	switch {
	case in.SafetyCar && WindowOpen(in.CurrentLap, window):
		rec.Recommendation = models.RecommendPitNow
		rec.Confidence = 0.95
		rec.Reason = "safety car, cheap stop while the field is slowed"
	case verdict.Pit:
		if verdict.Confidence > 0.7 {
			rec.Recommendation = models.RecommendPitNow
		} else {
			rec.Recommendation = models.RecommendConsiderPit
		}
		rec.Confidence = verdict.Confidence
		rec.Reason = verdict.Reason
	case remaining <= 10 && in.TyreAge < 15:
		rec.Recommendation = models.RecommendExtendStint
		rec.Confidence = 0.8
		rec.Reason = fmt.Sprintf("only %d laps left, no stop needed", remaining)
	default:
		rec.Recommendation = models.RecommendStayOut
		rec.Confidence = 1.0 - in.CliffRisk*0.5
		rec.Reason = window.Reason
	}

	if rec.Recommendation == models.RecommendPitNow || rec.Recommendation == models.RecommendConsiderPit {
		rec.NextCompound = nextCompound(in.Compound, remaining)
	}

	switch rec.Recommendation {
	case models.RecommendStayOut:
		if window.IdealLap > 0 {
			rec.Alternatives = append(rec.Alternatives, fmt.Sprintf("pit on lap %d for optimal timing", window.IdealLap))
		}
	case models.RecommendPitNow:
		if window.IdealLap > 0 {
			rec.Alternatives = append(rec.Alternatives, fmt.Sprintf("extend stint to lap %d if needed", window.MaxLap))
		}
	}
	if undercut {
		freshAdvantage := 1.5 + (aheadDeg-in.DegSlope)*3
		rec.Alternatives = append(rec.Alternatives, ExplainUndercut(in.GapAhead, in.PitLoss, freshAdvantage))
	}

	rec.Explanation = Explain(rec)
	return rec
}

// nextCompound picks the tyre to fit at the stop based on remaining race
// distance.
func nextCompound(current models.Compound, remaining int) models.Compound {
	switch {
	case remaining > 30:
		if current == models.CompoundSoft {
			return models.CompoundMedium
		}
		return models.CompoundHard
	case remaining > 15:
		return models.CompoundMedium
	default:
		return models.CompoundSoft
	}
}
