package simulation

import (
	"math/rand"

	"PitWall/internal/domain/models"
)

// Rival pit behaviour inside simulated races. Rivals act on simple rules
// rather than random stops: pit when the tyre is dead, grab cheap stops
// under the safety car, and sometimes cover an undercut.

// RivalDecision is one rival's per-lap strategy call.
type RivalDecision struct {
	Pit      bool
	Compound models.Compound
}

// DecideRivalStop evaluates whether a simulated rival pits this lap.
// rng supplies the reaction-variance coin flip for defensive stops.
func DecideRivalStop(rng *rand.Rand, tyreAge, position int, gapBehind float64, compound models.Compound, safetyCar bool) RivalDecision {
	cliffLap := TyreParamsFor(compound).CliffLap

	if safetyCar && tyreAge > 10 {
		return RivalDecision{Pit: true, Compound: models.CompoundHard}
	}
	if tyreAge > cliffLap {
		return RivalDecision{Pit: true, Compound: models.CompoundHard}
	}
	// Defensive stop against an undercut: in the points, under pressure,
	// with a real window open. Half the time the rival reacts this lap.
	if position <= 10 && gapBehind >= 0 && gapBehind < 2.0 && tyreAge > 15 && rng.Float64() < 0.5 {
		return RivalDecision{Pit: true, Compound: models.CompoundHard}
	}
	return RivalDecision{Pit: false, Compound: compound}
}
