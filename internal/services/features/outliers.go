package features

import "math"

// DefaultOutlierSigma is the deviation multiple beyond which a lap is
// flagged as an outlier.
const DefaultOutlierSigma = 2.0

// minSampleLaps is the smallest window that supports an outlier judgment.
const minSampleLaps = 3

// FlagOutliers marks laps whose time deviates from the window mean by more
// than sigma sample standard deviations. The returned slice is parallel to
// lapTimes; true means outlier. Fewer than three laps yields no flags.
func FlagOutliers(lapTimes []float64, sigma float64) []bool {
	flags := make([]bool, len(lapTimes))
	if len(lapTimes) < minSampleLaps {
		return flags
	}
	if sigma <= 0 {
		sigma = DefaultOutlierSigma
	}

	mean, std := meanStd(lapTimes)
	if std == 0 {
		return flags
	}
	for i, t := range lapTimes {
		if math.Abs(t-mean) > sigma*std {
			flags[i] = true
		}
	}
	return flags
}

// CleanLapTimes returns the subset of lapTimes that survives outlier
// flagging. The input is never modified; raw history stays intact for
// audit and replay.
func CleanLapTimes(lapTimes []float64, sigma float64) []float64 {
	flags := FlagOutliers(lapTimes, sigma)
	out := make([]float64, 0, len(lapTimes))
	for i, t := range lapTimes {
		if !flags[i] {
			out = append(out, t)
		}
	}
	return out
}

// IsOutlier judges a single new lap against an existing window of times.
func IsOutlier(lapTime float64, window []float64, sigma float64) bool {
	if len(window) < minSampleLaps {
		return false
	}
	if sigma <= 0 {
		sigma = DefaultOutlierSigma
	}
	mean, std := meanStd(window)
	if std == 0 {
		return false
	}
	return math.Abs(lapTime-mean) > sigma*std
}

// meanStd returns the mean and sample standard deviation of xs.
func meanStd(xs []float64) (float64, float64) {
	n := float64(len(xs))
	if n < 2 {
		if n == 1 {
			return xs[0], 0
		}
		return 0, 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean := sum / n
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / (n - 1))
}
