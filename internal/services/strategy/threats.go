package strategy

// Threat assessment around pit stops: whether the car ahead can be
// undercut, whether the car behind makes an overcut worthwhile, and how
// many positions a stop puts at risk.

// ThreatAssessment bundles the live undercut/overcut judgment.
type ThreatAssessment struct {
	UndercutViable     bool
	UndercutConfidence float64
	OvercutViable      bool
	OvercutConfidence  float64
}

// undercutDegMargin is the relative degradation edge (s/lap) that makes an
// undercut or overcut worth considering.
const undercutDegMargin = 0.02

// DetectUndercut judges whether pitting first can jump the car ahead.
// gapAhead < 0 means leading or gap unknown.
func DetectUndercut(gapAhead, ourDeg, theirDeg, pitLoss float64) (bool, float64) {
	if gapAhead <= 0 {
		return false, 0
	}
	if gapAhead > pitLoss+3.0 {
		// Too far back; fresh tyres cannot close that before they react.
		return false, 0
	}
	if gapAhead < 1.0 {
		// Close enough that a normal overtake may work instead.
		return false, 0.5
	}

	requiredDelta := pitLoss - gapAhead
	freshAdvantage := 1.5 + (theirDeg-ourDeg)*3

	viable := freshAdvantage > requiredDelta
	confidence := freshAdvantage / max(0.1, requiredDelta)
	if confidence > 1 {
		confidence = 1
	}
	return viable, confidence
}

// DetectOvercut judges whether staying out while the car behind pits first
// leaves us ahead after our later stop. gapBehind < 0 means last or unknown.
func DetectOvercut(gapBehind, ourDeg, theirDeg, pitLoss float64) (bool, float64) {
	if gapBehind < 0 || gapBehind >= pitLoss {
		// Safe gap; nothing to defend.
		return false, 0
	}
	degAdvantage := theirDeg - ourDeg

	viable := degAdvantage > undercutDegMargin
	confidence := degAdvantage / 0.05
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}
	return viable, confidence
}

// UndercutThreshold returns the fresh-tyre lap time advantage needed to make
// an undercut stick, assuming the car ahead pits within lapsInWindow laps.
func UndercutThreshold(ourDeg, aheadDeg, pitLoss float64, lapsInWindow int) float64 {
	if lapsInWindow < 1 {
		lapsInWindow = 1
	}
	requiredPerLap := pitLoss / float64(lapsInWindow)
	return requiredPerLap - (aheadDeg - ourDeg)
}

// EstimatePositionLoss estimates how many places a stop costs given the gap
// to the car behind. gapBehind < 0 means unknown; assume one place.
func EstimatePositionLoss(gapBehind, pitLoss float64) int {
	const safetyMargin = 1.0
	if gapBehind < 0 {
		return 1
	}
	exposure := pitLoss + safetyMargin
	if gapBehind > exposure {
		return 0
	}
	// Roughly one position per two seconds of exposure.
	positions := int((exposure-gapBehind)/2.0) + 1
	if positions > 5 {
		positions = 5
	}
	return positions
}
