package degradation

import "PitWall/internal/domain/models"

// CompoundPrior seeds a fresh stint model before any laps are observed and
// parameterizes the cliff-risk curve for the compound.
type CompoundPrior struct {
	// DegSlope is the expected degradation rate in seconds per lap.
	DegSlope float64
	// DegStd is the spread of the expected rate. It scales the seeded
	// covariance: a volatile compound starts less certain than a stable one.
	DegStd float64
	// CliffLap is the tyre age at which a sharp drop-off typically starts.
	CliffLap int
	// CliffThreshold is the estimated slope (s/lap) beyond which the tyre is
	// considered to be on the cliff.
	CliffThreshold float64
	// WarmupLaps is how many laps the compound needs to reach working
	// temperature.
	WarmupLaps int
	// WarmupPenalty is the lap-time cost on the first out lap, fading
	// linearly to zero across the warmup.
	WarmupPenalty float64
}

var compoundPriors = map[models.Compound]CompoundPrior{
	models.CompoundSoft: {
		DegSlope:       0.08,
		DegStd:         0.03,
		CliffLap:       20,
		CliffThreshold: 0.12,
		WarmupLaps:     1,
		WarmupPenalty:  0.5,
	},
	models.CompoundMedium: {
		DegSlope:       0.05,
		DegStd:         0.02,
		CliffLap:       35,
		CliffThreshold: 0.10,
		WarmupLaps:     2,
		WarmupPenalty:  0.8,
	},
	models.CompoundHard: {
		DegSlope:       0.03,
		DegStd:         0.015,
		CliffLap:       50,
		CliffThreshold: 0.08,
		WarmupLaps:     3,
		WarmupPenalty:  1.2,
	},
	models.CompoundIntermediate: {
		DegSlope:       0.10,
		DegStd:         0.05,
		CliffLap:       25,
		CliffThreshold: 0.15,
		WarmupLaps:     1,
		WarmupPenalty:  0.3,
	},
	models.CompoundWet: {
		DegSlope:       0.12,
		DegStd:         0.06,
		CliffLap:       20,
		CliffThreshold: 0.18,
		WarmupLaps:     1,
		WarmupPenalty:  0.3,
	},
}

// PriorFor returns the calibrated prior for a compound. Unknown compounds
// fall back to the medium prior.
func PriorFor(c models.Compound) CompoundPrior {
	if p, ok := compoundPriors[c]; ok {
		return p
	}
	return compoundPriors[models.CompoundMedium]
}
