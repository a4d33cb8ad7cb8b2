package degradation

import "math"

const (
	defaultLambda     = 0.97
	initialCovariance = 1000.0
	regularization    = 1e-6
)

// Estimator is a two-parameter recursive least squares filter fitting
// lapTime = basePace + degSlope * lapInStint. Updates are O(1); no lap
// history is retained. Not safe for concurrent use; each stint model owns
// exactly one estimator.
type Estimator struct {
	theta   [2]float64    // [basePace, degSlope]
	p       [2][2]float64 // parameter covariance
	lambda  float64       // forgetting factor
	updates int
	sse     float64 // running sum of squared prediction errors
}

// NewEstimator creates an estimator with a diffuse prior. lambda outside
// (0,1] falls back to the default forgetting factor.
func NewEstimator(lambda float64) *Estimator {
	if lambda <= 0 || lambda > 1 {
		lambda = defaultLambda
	}
	e := &Estimator{lambda: lambda}
	e.Reset()
	return e
}

// Reset restores the diffuse prior and clears all running statistics.
func (e *Estimator) Reset() {
	e.theta = [2]float64{}
	e.p = [2][2]float64{
		{initialCovariance, 0},
		{0, initialCovariance},
	}
	e.updates = 0
	e.sse = 0
}

// WarmStart seeds the parameters and shrinks the prior covariance so early
// laps pull against a plausible estimate instead of zero. uncertainty scales
// the covariance: 1 keeps the diffuse prior, smaller values trust the seed
// more.
func (e *Estimator) WarmStart(basePace, degSlope, uncertainty float64) {
	e.theta[0] = basePace
	e.theta[1] = degSlope
	if uncertainty <= 0 || uncertainty > 1 {
		uncertainty = 1
	}
	e.p = [2][2]float64{
		{initialCovariance * uncertainty, 0},
		{0, initialCovariance * uncertainty},
	}
}

// Update folds one observed lap into the estimate. lapInStint is the age of
// the current tyre set in laps, y the lap time in seconds. Returns the
// prediction error before the update.
func (e *Estimator) Update(lapInStint int, y float64) float64 {
	return e.UpdateWeighted(lapInStint, y, 1)
}

// UpdateWeighted folds one lap in with a weight in (0,1]. Partially
// compromised laps (light traffic) carry less evidence than clean ones; a
// weight of 1 is a full update and a weight of 0 or less is a no-op.
func (e *Estimator) UpdateWeighted(lapInStint int, y, weight float64) float64 {
	x := [2]float64{1, float64(lapInStint)}

	// Prediction error against the prior estimate.
	yHat := e.theta[0]*x[0] + e.theta[1]*x[1]
	err := y - yHat

	if weight <= 0 {
		return err
	}
	if weight > 1 {
		weight = 1
	}

	// px = P * x
	px := [2]float64{
		e.p[0][0]*x[0] + e.p[0][1]*x[1],
		e.p[1][0]*x[0] + e.p[1][1]*x[1],
	}

	// Gain denominator lambda + w x' P x, regularized to stay invertible.
	denom := e.lambda + weight*(x[0]*px[0]+x[1]*px[1]) + regularization
	k := [2]float64{weight * px[0] / denom, weight * px[1] / denom}

	e.theta[0] += k[0] * err
	e.theta[1] += k[1] * err

	// P = (P - k (x'P)) / lambda
	xp := [2]float64{
		x[0]*e.p[0][0] + x[1]*e.p[1][0],
		x[0]*e.p[0][1] + x[1]*e.p[1][1],
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			e.p[i][j] = (e.p[i][j] - k[i]*xp[j]) / e.lambda
		}
	}

	// Symmetrize and regularize against numerical drift.
	offDiag := (e.p[0][1] + e.p[1][0]) / 2
	e.p[0][1] = offDiag
	e.p[1][0] = offDiag
	e.p[0][0] += regularization
	e.p[1][1] += regularization

	e.updates++
	e.sse += err * err
	return err
}

// Predict returns the expected lap time at a given tyre age.
func (e *Estimator) Predict(lapInStint int) float64 {
	return e.theta[0] + e.theta[1]*float64(lapInStint)
}

// PredictWithUncertainty returns the expected lap time and one standard
// deviation of parameter uncertainty at that age.
func (e *Estimator) PredictWithUncertainty(lapInStint int) (float64, float64) {
	x := [2]float64{1, float64(lapInStint)}
	variance := x[0]*(e.p[0][0]*x[0]+e.p[0][1]*x[1]) +
		x[1]*(e.p[1][0]*x[0]+e.p[1][1]*x[1])
	if variance < 0 {
		variance = 0
	}
	return e.Predict(lapInStint), math.Sqrt(variance)
}

// BasePace returns the estimated fresh-tyre pace in seconds.
func (e *Estimator) BasePace() float64 { return e.theta[0] }

// DegSlope returns the estimated degradation rate in seconds per lap.
func (e *Estimator) DegSlope() float64 { return e.theta[1] }

// Updates returns how many laps have been folded in.
func (e *Estimator) Updates() int { return e.updates }

// RMSE returns the root mean squared one-step prediction error.
func (e *Estimator) RMSE() float64 {
	if e.updates == 0 {
		return 0
	}
	return math.Sqrt(e.sse / float64(e.updates))
}

// Confidence maps parameter covariance into [0,1]. It grows with updates and
// shrinks with residual covariance on the slope term.
func (e *Estimator) Confidence() float64 {
	if e.updates == 0 {
		return 0
	}
	slopeVar := e.p[1][1]
	if slopeVar < 0 {
		slopeVar = 0
	}
	c := 1.0 / (1.0 + slopeVar)
	// Ramp in over the first few updates regardless of covariance.
	ramp := float64(e.updates) / (float64(e.updates) + 3.0)
	return c * ramp
}

// Covariance returns a copy of the parameter covariance matrix.
func (e *Estimator) Covariance() [2][2]float64 { return e.p }
