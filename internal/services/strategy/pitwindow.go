package strategy

import (
	"fmt"

	"PitWall/internal/domain/models"
	"PitWall/internal/domain/service"
)

// DefaultMinStintLaps is the shortest stint worth starting on fresh tyres.
const DefaultMinStintLaps = 10

// minSlopeFloor keeps the crossover calculation finite when the estimated
// slope is flat or negative.
const minSlopeFloor = 0.01

// Calculator derives pit windows from degradation estimates. Implements
// service.WindowCalculator.
type Calculator struct {
	minStintLaps int
}

// NewCalculator creates a window calculator. minStintLaps <= 0 selects the
// default.
func NewCalculator(minStintLaps int) *Calculator {
	if minStintLaps <= 0 {
		minStintLaps = DefaultMinStintLaps
	}
	return &Calculator{minStintLaps: minStintLaps}
}

var _ service.WindowCalculator = (*Calculator)(nil)

// FindOptimalWindow computes the recommended stop interval. When too few
// laps remain to justify a stop the window carries the zero ideal-lap
// sentinel and full confidence.
func (c *Calculator) FindOptimalWindow(in service.WindowInput) models.PitWindow {
	remaining := in.TotalLaps - in.CurrentLap

	if remaining <= c.minStintLaps {
		return models.PitWindow{
			Confidence: 1.0,
			Reason:     "too late to pit, stay out to the finish",
		}
	}

	slope := in.DegSlope
	if slope < minSlopeFloor {
		slope = minSlopeFloor
	}
	// Laps until cumulative degradation outweighs the stop itself.
	crossover := int(in.PitLoss / slope)

	minLap := in.CurrentLap + max(1, c.minStintLaps-in.TyreAge)
	maxLap := in.CurrentLap + min(remaining-c.minStintLaps, crossover+5)
	if maxLap < minLap {
		maxLap = minLap
	}
	if maxLap > in.TotalLaps {
		maxLap = in.TotalLaps
	}

	var ideal int
	var reason string
	switch {
	case in.CliffRisk > 0.7:
		ideal = in.CurrentLap + max(1, (maxLap-minLap)*3/10)
		reason = "high cliff risk, pit early"
	case in.CliffRisk > 0.4:
		ideal = in.CurrentLap + (maxLap-minLap)/2
		reason = "moderate degradation, flexible window"
	default:
		ideal = maxLap
		reason = "low degradation, stint can be extended"
	}
	if ideal < minLap {
		ideal = minLap
	}
	if ideal > maxLap {
		ideal = maxLap
	}

	confidence := 1.0 - min(0.5, in.CliffRisk*0.5)

	return models.PitWindow{
		MinLap:     max(1, minLap),
		IdealLap:   ideal,
		MaxLap:     maxLap,
		Confidence: confidence,
		Reason:     reason,
	}
}

// PitVerdict is the immediate should-we-stop judgment for one lap.
type PitVerdict struct {
	Pit        bool
	Confidence float64
	Reason     string
}

// WindowOpen reports whether a stop this lap lands inside the window. A
// window computed this lap opens at currentLap+1, so the lap before MinLap
// counts as open.
func WindowOpen(currentLap int, window models.PitWindow) bool {
	return window.IdealLap > 0 && currentLap+1 >= window.MinLap && currentLap <= window.MaxLap
}

// ShouldPitNow judges whether to stop on the current lap given the window
// and live threat state.
func ShouldPitNow(currentLap int, window models.PitWindow, cliffRisk float64, undercutThreat, safetyCar bool) PitVerdict {
	if safetyCar && WindowOpen(currentLap, window) {
		return PitVerdict{true, 0.95, "safety car, cheap stop while the field is slowed"}
	}
	if cliffRisk > 0.85 {
		return PitVerdict{true, 0.9, "critical cliff risk, pit immediately"}
	}
	if undercutThreat && WindowOpen(currentLap, window) {
		return PitVerdict{true, 0.8, "undercut threat, cover by pitting"}
	}
	if window.IdealLap > 0 && currentLap == window.IdealLap {
		return PitVerdict{true, window.Confidence, "ideal pit lap reached"}
	}
	if window.IdealLap > 0 && currentLap > window.MaxLap {
		return PitVerdict{true, 0.7, "past the optimal window, pit now"}
	}

	reason := fmt.Sprintf("stay out, window opens lap %d", window.MinLap)
	if window.IdealLap > 0 && currentLap >= window.MinLap {
		reason = fmt.Sprintf("in window, ideal lap %d", window.IdealLap)
	}
	return PitVerdict{false, 0.5, reason}
}
