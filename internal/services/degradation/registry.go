package degradation

import (
	"sync"

	"PitWall/internal/domain/models"
)

// SealFunc is called when a stint boundary seals a model, with the model
// that just closed. Hooks must not retain the model past the call.
type SealFunc func(competitorID int, sealed *Model)

// Registry owns one live stint model per competitor and detects stint
// boundaries from the lap stream. A boundary seals the old model and
// warm-starts a replacement from the sealed model's base pace. Safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	models   map[int]*Model
	sigma    float64
	lambda   float64
	minClean int
	onSeal   SealFunc
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryOutlierSigma sets the outlier threshold for all models.
func WithRegistryOutlierSigma(sigma float64) RegistryOption {
	return func(r *Registry) {
		if sigma > 0 {
			r.sigma = sigma
		}
	}
}

// WithRegistryLambda sets the forgetting factor for all models.
func WithRegistryLambda(lambda float64) RegistryOption {
	return func(r *Registry) {
		if lambda > 0 && lambda <= 1 {
			r.lambda = lambda
		}
	}
}

// WithRegistryMinCleanLaps sets the clean-lap minimum for all models.
func WithRegistryMinCleanLaps(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.minClean = n
		}
	}
}

// WithSealHook registers a callback fired on every stint seal.
func WithSealHook(fn SealFunc) RegistryOption {
	return func(r *Registry) { r.onSeal = fn }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		models:   make(map[int]*Model),
		sigma:    0,
		lambda:   defaultLambda,
		minClean: minCleanLaps,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Observe routes one lap feature to the competitor's live model, creating or
// rotating the model first when the lap starts a new stint. The first return
// value reports whether the lap was rejected as an outlier.
func (r *Registry) Observe(f models.LapFeature) (bool, error) {
	r.mu.Lock()
	m, ok := r.models[f.CompetitorID]
	if !ok {
		m = r.newModel(f.CompetitorID, 1, f.Compound, 0)
		r.models[f.CompetitorID] = m
	} else if r.isBoundary(m, f) {
		m.Seal()
		if r.onSeal != nil {
			r.onSeal(f.CompetitorID, m)
		}
		hint := 0.0
		if m.CleanLaps() >= r.minClean {
			hint = m.Parameters().BasePace
		}
		m = r.newModel(f.CompetitorID, m.StintNumber()+1, f.Compound, hint)
		r.models[f.CompetitorID] = m
	}
	r.mu.Unlock()

	return m.Observe(f)
}

// isBoundary detects a stint change: the tyre age went backwards (new set
// fitted) or the compound changed mid-count.
func (r *Registry) isBoundary(m *Model, f models.LapFeature) bool {
	if f.LapInStint < m.StintLap() {
		return true
	}
	if f.Compound != models.CompoundUnknown && m.Compound() != models.CompoundUnknown && f.Compound != m.Compound() {
		return true
	}
	return false
}

func (r *Registry) newModel(competitorID, stintNumber int, compound models.Compound, hint float64) *Model {
	opts := []ModelOption{WithLambda(r.lambda), WithMinCleanLaps(r.minClean)}
	if r.sigma > 0 {
		opts = append(opts, WithOutlierSigma(r.sigma))
	}
	return NewModel(competitorID, stintNumber, compound, hint, opts...)
}

// Model returns the live model for one competitor.
func (r *Registry) Model(competitorID int) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[competitorID]
	return m, ok
}

// defaultPredictLaps is how many forward predictions a summary carries when
// the caller does not ask for a count.
const defaultPredictLaps = 5

// Summary builds the read model for one competitor with k forward lap
// predictions (k <= 0 applies the default). Returns
// models.ErrUnknownCompetitor when no laps have been seen, and
// models.ErrInsufficientData below the clean-lap minimum.
func (r *Registry) Summary(competitorID, k int) (*models.DegradationSummary, error) {
	m, ok := r.Model(competitorID)
	if !ok {
		return nil, models.ErrUnknownCompetitor
	}
	if k <= 0 {
		k = defaultPredictLaps
	}
	preds, err := m.PredictNext(k)
	if err != nil {
		return nil, err
	}
	risk, err := m.CliffRisk()
	if err != nil {
		return nil, err
	}
	p := m.Parameters()
	return &models.DegradationSummary{
		CompetitorID:  competitorID,
		StintNumber:   m.StintNumber(),
		Compound:      m.Compound(),
		BasePace:      p.BasePace,
		DegSlope:      p.DegSlope,
		CliffRisk:     risk,
		Confidence:    p.Confidence,
		CleanLaps:     m.CleanLaps(),
		PredictedNext: preds,
	}, nil
}

// CompetitorIDs returns every competitor with a live model.
func (r *Registry) CompetitorIDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot assembles the immutable view a simulation run reads. positions
// maps competitor id to its latest classification record; competitors
// without a converged model fall back to their compound prior slope.
func (r *Registry) Snapshot(currentLap, totalLaps int, pitLoss float64, positions map[int]*models.PositionData) models.RaceSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := models.RaceSnapshot{
		CurrentLap: currentLap,
		TotalLaps:  totalLaps,
		PitLoss:    pitLoss,
	}
	for id, m := range r.models {
		c := models.CompetitorSnapshot{
			CompetitorID: id,
			TyreAge:      m.StintLap(),
			Compound:     m.Compound(),
		}
		p := m.Parameters()
		if m.CleanLaps() >= r.minClean {
			c.BasePace = p.BasePace
			c.DegSlope = p.DegSlope
		} else {
			c.DegSlope = PriorFor(m.Compound()).DegSlope
		}
		if pos, ok := positions[id]; ok && pos != nil {
			c.Position = pos.Position
			c.GapToLeader = pos.GapToLeader
		}
		snap.Competitors = append(snap.Competitors, c)
	}
	return snap
}
