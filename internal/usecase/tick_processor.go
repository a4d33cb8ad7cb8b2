package usecase

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"PitWall/internal/domain/models"
	drepo "PitWall/internal/domain/repository"
	"PitWall/internal/services/degradation"
	"PitWall/internal/services/features"
	"PitWall/internal/services/strategy"
)

// RaceConfig is the static race context a session is processed under.
type RaceConfig struct {
	TotalLaps int
	PitLoss   float64
}

// TickProcessor drives one lap observation through the full chain: feature
// building, the per-competitor degradation registry, the decision engine,
// and out to the archive and publisher. One instance owns all live race
// state for a session.
type TickProcessor struct {
	cfg      RaceConfig
	builder  *features.Builder
	registry *degradation.Registry
	engine   *strategy.Engine
	pub      drepo.Publisher
	archive  drepo.LapArchive
	metrics  drepo.Metrics

	mu        sync.RWMutex
	positions map[int]*models.PositionData
	lapCount  map[int]int
	safetyCar bool
}

// NewTickProcessor wires the processing chain.
func NewTickProcessor(
	cfg RaceConfig,
	builder *features.Builder,
	registry *degradation.Registry,
	engine *strategy.Engine,
	pub drepo.Publisher,
	archive drepo.LapArchive,
	metrics drepo.Metrics,
) *TickProcessor {
	return &TickProcessor{
		cfg:       cfg,
		builder:   builder,
		registry:  registry,
		engine:    engine,
		pub:       pub,
		archive:   archive,
		metrics:   metrics,
		positions: make(map[int]*models.PositionData),
		lapCount:  make(map[int]int),
	}
}

// ProcessLap applies one lap record: validate, featurize, update the
// competitor's model, archive the observation, and publish a fresh
// recommendation. A validation failure drops the single record and leaves
// model state untouched.
func (p *TickProcessor) ProcessLap(ctx context.Context, lap *models.LapData) error {
	if lap == nil {
		return fmt.Errorf("lap is nil")
	}
	start := time.Now()

	pos := p.Position(lap.CompetitorID)
	feature, err := p.builder.Build(lap, pos)
	if err != nil {
		p.metrics.RecordError("lap_validate")
		return fmt.Errorf("build feature: %w", err)
	}

	outlier, err := p.registry.Observe(feature)
	if err != nil {
		p.metrics.RecordError("model_observe")
		return fmt.Errorf("observe lap: %w", err)
	}

	p.mu.Lock()
	if lap.LapNumber > p.lapCount[lap.CompetitorID] {
		p.lapCount[lap.CompetitorID] = lap.LapNumber
	}
	p.mu.Unlock()

	competitor := strconv.Itoa(lap.CompetitorID)
	p.metrics.RecordLapProcessed(competitor)
	if outlier {
		p.metrics.RecordOutlierRejected(competitor)
	}
	if m, ok := p.registry.Model(lap.CompetitorID); ok {
		p.metrics.RecordDegSlope(competitor, m.Parameters().DegSlope)
	}

	if p.archive != nil {
		obs := &models.LapObservation{
			CompetitorID: feature.CompetitorID,
			RaceLap:      feature.RaceLap,
			LapInStint:   feature.LapInStint,
			LapTime:      feature.LapTime,
			Compound:     feature.Compound,
			Caution:      feature.Caution,
			Traffic:      feature.InTraffic,
			Outlier:      outlier,
			RecordedAt:   time.Now().UTC(),
		}
		if err := p.archive.StoreLap(ctx, obs); err != nil {
			p.metrics.RecordError("archive_lap")
			// Archival is audit plumbing; the live tick continues.
		}
	}

	if err := p.evaluateAndPublish(ctx, lap.CompetitorID); err != nil {
		return err
	}

	p.metrics.RecordLatency("process_lap", time.Since(start).Seconds())
	return nil
}

// UpdatePosition records the latest classification tick for a competitor.
func (p *TickProcessor) UpdatePosition(pos *models.PositionData) {
	if pos == nil {
		return
	}
	p.mu.Lock()
	p.positions[pos.CompetitorID] = pos
	p.mu.Unlock()
}

// Position returns the latest classification record for a competitor.
func (p *TickProcessor) Position(competitorID int) *models.PositionData {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.positions[competitorID]
}

// SetSafetyCar flips the caution state used by subsequent evaluations.
func (p *TickProcessor) SetSafetyCar(active bool) {
	p.mu.Lock()
	p.safetyCar = active
	p.mu.Unlock()
}

// CurrentLap returns the highest lap seen across the field.
func (p *TickProcessor) CurrentLap() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	lap := 0
	for _, n := range p.lapCount {
		if n > lap {
			lap = n
		}
	}
	return lap
}

// Snapshot assembles the immutable race view for the outcome simulator.
func (p *TickProcessor) Snapshot() models.RaceSnapshot {
	p.mu.RLock()
	positions := make(map[int]*models.PositionData, len(p.positions))
	for id, pos := range p.positions {
		positions[id] = pos
	}
	currentLap := 0
	for _, n := range p.lapCount {
		if n > currentLap {
			currentLap = n
		}
	}
	safetyCar := p.safetyCar
	p.mu.RUnlock()

	snap := p.registry.Snapshot(currentLap, p.cfg.TotalLaps, p.cfg.PitLoss, positions)
	snap.SafetyCar = safetyCar
	return snap
}

// Evaluate recomputes the recommendation for one competitor on demand.
func (p *TickProcessor) Evaluate(competitorID int) (*models.StrategyRecommendation, error) {
	m, ok := p.registry.Model(competitorID)
	if !ok {
		return nil, models.ErrUnknownCompetitor
	}
	return p.evaluate(competitorID, m), nil
}

func (p *TickProcessor) evaluateAndPublish(ctx context.Context, competitorID int) error {
	m, ok := p.registry.Model(competitorID)
	if !ok {
		return nil
	}
	rec := p.evaluate(competitorID, m)

	p.metrics.RecordRecommendation(string(rec.Recommendation))
	if p.pub != nil {
		if err := p.pub.PublishRecommendation(ctx, rec); err != nil {
			p.metrics.RecordError("publish")
			return fmt.Errorf("publish recommendation: %w", err)
		}
	}
	return nil
}

// evaluate builds the engine input for one competitor. Below the clean-lap
// minimum it returns a low-confidence stay-out instead of failing the tick.
func (p *TickProcessor) evaluate(competitorID int, m *degradation.Model) *models.StrategyRecommendation {
	risk, err := m.CliffRisk()
	if err != nil {
		rec := &models.StrategyRecommendation{
			CompetitorID:   competitorID,
			Recommendation: models.RecommendStayOut,
			Confidence:     0.2,
			Reason:         "still accumulating clean laps, no estimate yet",
			GeneratedAt:    time.Now().UTC(),
		}
		rec.Explanation = strategy.Explain(rec)
		return rec
	}

	params := m.Parameters()
	pos := p.Position(competitorID)

	p.mu.RLock()
	currentLap := p.lapCount[competitorID]
	safetyCar := p.safetyCar
	p.mu.RUnlock()

	in := strategy.EvaluationInput{
		CompetitorID: competitorID,
		CurrentLap:   currentLap,
		TotalLaps:    p.cfg.TotalLaps,
		DegSlope:     params.DegSlope,
		CliffRisk:    risk,
		CurrentPace:  params.BasePace + params.DegSlope*float64(m.StintLap()),
		TyreAge:      m.StintLap(),
		Compound:     m.Compound(),
		PitLoss:      p.cfg.PitLoss,
		GapAhead:     -1,
		GapBehind:    -1,
		SafetyCar:    safetyCar,
	}
	if pos != nil {
		in.Position = pos.Position
		in.GapAhead = pos.GapAhead
		in.GapBehind = pos.GapBehind
		in.AheadDeg = p.neighborSlope(pos.AheadID)
		in.BehindDeg = p.neighborSlope(pos.BehindID)
	}

	return p.engine.Evaluate(in)
}

// neighborSlope returns a neighbor's estimated degradation rate, or zero
// when it has no converged model yet.
func (p *TickProcessor) neighborSlope(competitorID int) float64 {
	if competitorID <= 0 {
		return 0
	}
	m, ok := p.registry.Model(competitorID)
	if !ok {
		return 0
	}
	if _, err := m.CliffRisk(); err != nil {
		return 0
	}
	return m.Parameters().DegSlope
}

// Registry exposes the model registry for the read-side aggregator.
func (p *TickProcessor) Registry() *degradation.Registry { return p.registry }

// Config returns the race context.
func (p *TickProcessor) Config() RaceConfig { return p.cfg }
