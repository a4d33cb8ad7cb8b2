package strategy

import (
	"fmt"
	"strings"

	"PitWall/internal/domain/models"
)

// Explain renders a recommendation as plain text for the pit wall display.
func Explain(rec *models.StrategyRecommendation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s (confidence %.0f%%)\n", rec.Recommendation, rec.Confidence*100)
	fmt.Fprintf(&b, "%s\n", rec.Reason)

	if rec.Window.IdealLap > 0 {
		fmt.Fprintf(&b, "pit window: laps %d-%d, ideal %d\n", rec.Window.MinLap, rec.Window.MaxLap, rec.Window.IdealLap)
	}
	if rec.UndercutThreat {
		b.WriteString("undercut threat: car ahead is vulnerable to an early stop\n")
	}
	if rec.OvercutOpportunity {
		b.WriteString("overcut viable: tyres are holding up better than the car behind\n")
	}
	if rec.NextCompound != "" {
		fmt.Fprintf(&b, "fit %s at the stop\n", rec.NextCompound)
	}
	if len(rec.Alternatives) > 0 {
		b.WriteString("alternatives:\n")
		for _, alt := range rec.Alternatives {
			fmt.Fprintf(&b, "  - %s\n", alt)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// ExplainWindow summarizes a pit window in one line.
func ExplainWindow(w models.PitWindow) string {
	if w.IdealLap == 0 {
		return "no stop recommended, stay out to the finish"
	}
	width := w.MaxLap - w.MinLap
	var urgency string
	switch {
	case width <= 3:
		urgency = "narrow window, pit soon"
	case width <= 8:
		urgency = "moderate flexibility"
	default:
		urgency = "wide window, flexible timing"
	}
	return fmt.Sprintf("pit between laps %d and %d; %s", w.MinLap, w.MaxLap, urgency)
}

// ExplainCliffRisk summarizes a cliff risk score for one compound.
func ExplainCliffRisk(risk float64, compound models.Compound) string {
	switch {
	case risk < 0.3:
		return fmt.Sprintf("%s performing well, no immediate concern", compound)
	case risk < 0.6:
		return fmt.Sprintf("%s showing degradation, monitor closely", compound)
	case risk < 0.8:
		return fmt.Sprintf("%s approaching the cliff, consider pitting soon", compound)
	default:
		return fmt.Sprintf("%s at the cliff, performance drop imminent", compound)
	}
}

// ExplainUndercut describes the feasibility of undercutting the car ahead.
func ExplainUndercut(gapAhead, pitLoss, freshAdvantage float64) string {
	gapAfterPit := gapAhead - pitLoss
	if gapAfterPit > 0 {
		return fmt.Sprintf("undercut not needed, stop clears the car ahead by %.1fs", gapAfterPit)
	}
	if freshAdvantage < 0.1 {
		freshAdvantage = 0.1
	}
	laps := -gapAfterPit / freshAdvantage
	return fmt.Sprintf("undercut possible, roughly %.0f laps to complete the move", laps)
}
