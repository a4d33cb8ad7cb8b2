package simulation

import (
	"math"

	"PitWall/internal/domain/models"
)

// Lap-time physics used inside simulated races: tyre wear phases, fuel
// burn, track evolution and dirty air. All functions are pure.

// TyreParams drives the three-phase wear curve of one compound: warmup,
// stable linear wear, then an exponential cliff.
type TyreParams struct {
	BaseGrip      float64 // pace offset vs the soft baseline, seconds
	DegRate       float64 // linear wear, seconds per lap
	WarmupLaps    int
	CliffLap      int
	CliffSeverity float64
}

var tyreParams = map[models.Compound]TyreParams{
	models.CompoundSoft:         {BaseGrip: 1.2, DegRate: 0.08, WarmupLaps: 1, CliffLap: 15, CliffSeverity: 0.2},
	models.CompoundMedium:       {BaseGrip: 0.6, DegRate: 0.05, WarmupLaps: 2, CliffLap: 25, CliffSeverity: 0.15},
	models.CompoundHard:         {BaseGrip: 0.0, DegRate: 0.03, WarmupLaps: 3, CliffLap: 40, CliffSeverity: 0.1},
	models.CompoundIntermediate: {BaseGrip: -2.0, DegRate: 0.05, WarmupLaps: 1, CliffLap: 30, CliffSeverity: 0.1},
	models.CompoundWet:          {BaseGrip: -5.0, DegRate: 0.05, WarmupLaps: 1, CliffLap: 30, CliffSeverity: 0.1},
}

// TyreParamsFor returns the wear curve for a compound, defaulting to medium.
func TyreParamsFor(c models.Compound) TyreParams {
	if p, ok := tyreParams[c]; ok {
		return p
	}
	return tyreParams[models.CompoundMedium]
}

// TyrePenalty returns the lap-time cost in seconds of a tyre at the given
// age. Cold tyres pay a warmup penalty, then wear linearly, then fall off
// the cliff exponentially.
func TyrePenalty(c models.Compound, lapAge int) float64 {
	p := TyreParamsFor(c)

	if lapAge < p.WarmupLaps {
		return WarmupPenalty(c, lapAge)
	}

	linear := float64(lapAge-p.WarmupLaps) * p.DegRate
	return linear + CliffPenalty(c, lapAge)
}

// WarmupPenalty returns only the cold-tyre part of the wear curve.
func WarmupPenalty(c models.Compound, lapAge int) float64 {
	p := TyreParamsFor(c)
	if lapAge >= p.WarmupLaps {
		return 0
	}
	return 0.5 * float64(p.WarmupLaps-lapAge)
}

// CliffPenalty returns only the exponential drop-off part of the wear
// curve; zero until the tyre passes its cliff lap.
func CliffPenalty(c models.Compound, lapAge int) float64 {
	p := TyreParamsFor(c)
	if lapAge <= p.CliffLap {
		return 0
	}
	return 0.1 * (math.Exp(p.CliffSeverity*float64(lapAge-p.CliffLap)) - 1)
}

// CompoundPaceDelta returns the base pace offset of a compound relative to
// the soft.
func CompoundPaceDelta(c models.Compound) float64 {
	return tyreParams[models.CompoundSoft].BaseGrip - TyreParamsFor(c).BaseGrip
}

const (
	startingFuelKg   = 110.0
	fuelBurnPerLapKg = 1.7
	fuelCostPerKg    = 0.035 // seconds per kg carried
)

// FuelMass returns the remaining fuel after a number of completed laps.
func FuelMass(lapsDone int) float64 {
	m := startingFuelKg - float64(lapsDone)*fuelBurnPerLapKg
	if m < 0 {
		return 0
	}
	return m
}

// FuelPenalty returns the lap-time cost of the fuel still on board,
// relative to an empty tank.
func FuelPenalty(lapsDone int) float64 {
	return FuelMass(lapsDone) * fuelCostPerKg
}

const maxTrackEvolution = 2.0

// TrackEvolution returns the lap-time gain in seconds from the circuit
// rubbering in, capped once the surface saturates.
func TrackEvolution(raceLap int) float64 {
	gain := float64(raceLap) * 0.03
	if gain > maxTrackEvolution {
		return maxTrackEvolution
	}
	return gain
}

const (
	dirtyAirThreshold = 3.0
	dirtyAirMaxLoss   = 0.5
)

// DirtyAirPenalty returns the lap-time cost of following another car.
// gapAhead < 0 means leading or alone.
func DirtyAirPenalty(gapAhead float64) float64 {
	if gapAhead <= 0 || gapAhead > dirtyAirThreshold {
		return 0
	}
	proximity := 1 - gapAhead/dirtyAirThreshold
	return dirtyAirMaxLoss * proximity * proximity
}
