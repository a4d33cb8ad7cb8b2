package degradation

import (
	"math"

	"PitWall/internal/domain/models"
	"PitWall/internal/services/features"
)

const (
	// minCleanLaps is the number of filtered laps required before the model
	// exposes predictions or cliff risk.
	minCleanLaps = 5
	// outlierWindow caps how many recent clean laps feed the outlier judge.
	outlierWindow = 10
	// outlierMinWindow is the smallest window the model judges against. With
	// only three samples a steadily degrading tyre puts the next lap right on
	// the threshold, so one extra sample is required.
	outlierMinWindow = 4
	// placeholderBasePace seeds the intercept for a first stint, before any
	// pace reference exists for the competitor.
	placeholderBasePace = 90.0
	// warmStartScale maps a compound's DegStd onto the covariance shrink
	// factor, so a SOFT starts more uncertain than a HARD.
	warmStartScale = 2.5
)

// Model is one competitor's live estimator for a single stint. It filters
// incoming laps, feeds the survivors to recursive least squares, and scores
// cliff risk. Sealed models reject further observations.
type Model struct {
	competitorID int
	stintNumber  int
	compound     models.Compound
	prior        CompoundPrior
	est          *Estimator
	sigma        float64
	minClean     int
	window       []float64 // recent clean lap times, for outlier judging
	cleanLaps    int
	stintLap     int
	sealed       bool
}

// ModelOption configures a stint model.
type ModelOption func(*Model)

// WithOutlierSigma overrides the outlier deviation threshold.
func WithOutlierSigma(sigma float64) ModelOption {
	return func(m *Model) {
		if sigma > 0 {
			m.sigma = sigma
		}
	}
}

// WithLambda overrides the estimator forgetting factor.
func WithLambda(lambda float64) ModelOption {
	return func(m *Model) {
		m.est = NewEstimator(lambda)
	}
}

// WithMinCleanLaps overrides how many clean laps are required before the
// model serves predictions.
func WithMinCleanLaps(n int) ModelOption {
	return func(m *Model) {
		if n > 0 {
			m.minClean = n
		}
	}
}

// NewModel creates a stint model warm-started from the compound prior.
// basePaceHint seeds the intercept; pass 0 when no pace reference exists yet.
func NewModel(competitorID, stintNumber int, compound models.Compound, basePaceHint float64, opts ...ModelOption) *Model {
	m := &Model{
		competitorID: competitorID,
		stintNumber:  stintNumber,
		compound:     compound,
		prior:        PriorFor(compound),
		est:          NewEstimator(defaultLambda),
		sigma:        features.DefaultOutlierSigma,
		minClean:     minCleanLaps,
	}
	for _, opt := range opts {
		opt(m)
	}
	basePace := basePaceHint
	if basePace <= 0 {
		basePace = placeholderBasePace
	}
	m.est.WarmStart(basePace, m.prior.DegSlope, warmStartScale*m.prior.DegStd)
	return m
}

// Observe routes one lap through the filter and, if it survives, the
// estimator. Caution laps, out laps and statistical outliers are dropped
// from training but still advance the stint lap counter; traffic laps get
// a down-weighted update scaled by how compromised the lap was. The first
// return value reports whether the lap was rejected as an outlier.
func (m *Model) Observe(f models.LapFeature) (bool, error) {
	if m.sealed {
		return false, models.ErrStaleModel
	}
	if f.LapInStint > m.stintLap {
		m.stintLap = f.LapInStint
	}

	if f.Caution {
		return false, nil
	}
	if f.InTraffic {
		if w := 1 - f.TrafficSeverity; w > 0 {
			m.est.UpdateWeighted(f.LapInStint, f.LapTime, w)
		}
		return false, nil
	}
	// The out lap carries pit-exit and warmup noise; never train on it.
	if f.LapInStint == 0 {
		return false, nil
	}
	if len(m.window) >= outlierMinWindow && features.IsOutlier(f.LapTime, m.window, m.sigma) {
		return true, nil
	}

	m.est.Update(f.LapInStint, f.LapTime)
	m.cleanLaps++
	m.window = append(m.window, f.LapTime)
	if len(m.window) > outlierWindow {
		m.window = m.window[1:]
	}
	return false, nil
}

// PredictNext returns the expected lap times for the next k laps of the
// stint. Pure read; repeated calls without an Observe return equal slices.
func (m *Model) PredictNext(k int) ([]float64, error) {
	if m.cleanLaps < m.minClean {
		return nil, models.ErrInsufficientData
	}
	if k <= 0 {
		return nil, nil
	}
	out := make([]float64, k)
	for i := 0; i < k; i++ {
		out[i] = m.est.Predict(m.stintLap + 1 + i)
	}
	return out, nil
}

// CliffRisk scores the likelihood of an imminent nonlinear drop-off in
// [0,1]. The score rises with the estimated slope relative to the compound's
// cliff threshold and with tyre age relative to its typical cliff lap, and
// accelerates once the age passes the cliff lap.
func (m *Model) CliffRisk() (float64, error) {
	if m.cleanLaps < m.minClean {
		return 0, models.ErrInsufficientData
	}
	slope := m.est.DegSlope()
	if slope < 0 {
		slope = 0
	}
	slopeRatio := slope / m.prior.CliffThreshold
	ageRatio := float64(m.stintLap) / float64(m.prior.CliffLap)
	kneeBoost := 0.0
	if over := m.stintLap - m.prior.CliffLap; over > 0 {
		kneeBoost = float64(over) * 0.15
	}
	risk := 1 - math.Exp(-(0.9*slopeRatio + 0.7*ageRatio + kneeBoost))
	if risk < 0 {
		risk = 0
	}
	if risk > 1 {
		risk = 1
	}
	return risk, nil
}

// Parameters returns a copy of the current estimate.
func (m *Model) Parameters() models.DegradationParameters {
	return models.DegradationParameters{
		BasePace:   m.est.BasePace(),
		DegSlope:   m.est.DegSlope(),
		Confidence: m.est.Confidence(),
		Covariance: m.est.Covariance(),
	}
}

// Seal freezes the model at a stint boundary. All later Observe calls fail
// with a stale-model error; reads stay valid.
func (m *Model) Seal() { m.sealed = true }

// Sealed reports whether the model is frozen.
func (m *Model) Sealed() bool { return m.sealed }

// CleanLaps returns how many laps survived filtering.
func (m *Model) CleanLaps() int { return m.cleanLaps }

// Compound returns the stint's tyre compound.
func (m *Model) Compound() models.Compound { return m.compound }

// StintLap returns the current tyre age in laps.
func (m *Model) StintLap() int { return m.stintLap }

// StintNumber returns the one-based stint index.
func (m *Model) StintNumber() int { return m.stintNumber }
