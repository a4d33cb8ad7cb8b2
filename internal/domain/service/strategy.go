package service

import (
	"PitWall/internal/domain/models"
)

// DegradationModel is the capability interface for one competitor's live
// stint estimator. Implementations are selected at construction time.
type DegradationModel interface {
	// Observe routes one lap feature through the outlier filter and the
	// estimator update. Outlier-flagged laps are recorded in history but do
	// not touch estimator state; traffic laps train with a reduced weight.
	// The first return value reports an outlier rejection.
	Observe(f models.LapFeature) (bool, error)

	// PredictNext returns k forward lap-time predictions. Idempotent: two
	// calls without an intervening Observe return identical slices.
	// Returns models.ErrInsufficientData below the clean-lap minimum.
	PredictNext(k int) ([]float64, error)

	// CliffRisk scores the likelihood of a sharp nonlinear drop-off in
	// [0,1]. Returns models.ErrInsufficientData below the clean-lap minimum.
	CliffRisk() (float64, error)

	// Parameters returns a copy of the current estimate.
	Parameters() models.DegradationParameters

	CleanLaps() int
	Compound() models.Compound
	StintLap() int
}

// WindowCalculator derives a recommended stop-lap interval from a
// degradation snapshot plus race-position context.
type WindowCalculator interface {
	FindOptimalWindow(in WindowInput) models.PitWindow
}

// WindowInput carries everything the pit-window calculation reads.
type WindowInput struct {
	CurrentLap  int
	TotalLaps   int
	DegSlope    float64
	CurrentPace float64
	PitLoss     float64
	TyreAge     int
	Compound    models.Compound
	CliffRisk   float64
}

// OutcomeSimulator projects finishing-position distributions for a
// candidate pit lap. Implementations must only read the snapshot.
type OutcomeSimulator interface {
	Run(snapshot models.RaceSnapshot, competitorID, pitLap, trials int) (models.SimulationOutcome, error)
}
