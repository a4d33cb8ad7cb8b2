package features

// DefaultTrafficGap is the gap-to-ahead threshold (seconds) below which a
// lap counts as run in dirty air and is down-weighted in estimator training.
const DefaultTrafficGap = 1.0

// InTraffic reports whether a lap was compromised by the car ahead.
// gapAhead < 0 means leading or gap unknown; that is clean air.
func InTraffic(gapAhead, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultTrafficGap
	}
	return gapAhead >= 0 && gapAhead <= threshold
}

// TrafficSeverity scales the dirty-air impact into [0,1]: 0 at the
// threshold gap, 1 at half a second or closer.
func TrafficSeverity(gapAhead, threshold float64) float64 {
	if threshold <= 0 {
		threshold = DefaultTrafficGap
	}
	if gapAhead < 0 || gapAhead >= threshold {
		return 0
	}
	const floor = 0.5
	if gapAhead <= floor {
		return 1
	}
	return (threshold - gapAhead) / (threshold - floor)
}
