package usecase

import (
	"context"
	"fmt"
	"time"

	"PitWall/internal/domain/models"
	"PitWall/internal/domain/service"
	"PitWall/pkg/cache"
)

const (
	summaryTTL        = 5 * time.Second
	recommendationTTL = 5 * time.Second
	simulationTTL     = 10 * time.Minute
)

// StrategyAggregator is the read side: it serves degradation summaries,
// recommendations and simulation outcomes to the API, with a short-lived
// cache in front of the live models so a burst of clients does not hammer
// the registry mid-tick.
type StrategyAggregator struct {
	proc  *TickProcessor
	sim   service.OutcomeSimulator
	cache cache.Service
}

// NewStrategyAggregator creates the read-side aggregator.
func NewStrategyAggregator(proc *TickProcessor, sim service.OutcomeSimulator, c cache.Service) *StrategyAggregator {
	return &StrategyAggregator{proc: proc, sim: sim, cache: c}
}

// Degradation returns the current degradation summary for one competitor
// with k forward lap predictions. k is part of the cache key; different
// horizons never share an entry.
func (a *StrategyAggregator) Degradation(ctx context.Context, competitorID, k int) (*models.DegradationSummary, error) {
	key := cache.GenerateKeyWithParams("degradation", competitorID, k)
	if a.cache != nil {
		var cached models.DegradationSummary
		if err := a.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	s, err := a.proc.Registry().Summary(competitorID, k)
	if err != nil {
		return nil, err
	}
	if a.cache != nil {
		_ = a.cache.Set(ctx, key, s, summaryTTL)
	}
	return s, nil
}

// Recommendation recomputes the strategy call for one competitor.
func (a *StrategyAggregator) Recommendation(ctx context.Context, competitorID int) (*models.StrategyRecommendation, error) {
	key := cache.GenerateKeyWithParams("recommendation", competitorID)
	if a.cache != nil {
		var cached models.StrategyRecommendation
		if err := a.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	rec, err := a.proc.Evaluate(competitorID)
	if err != nil {
		return nil, err
	}
	if a.cache != nil {
		_ = a.cache.Set(ctx, key, rec, recommendationTTL)
	}
	return rec, nil
}

// Simulate runs a Monte Carlo projection for a candidate pit lap against
// the current race snapshot.
func (a *StrategyAggregator) Simulate(ctx context.Context, competitorID, pitLap, trials int) (*models.SimulationOutcome, error) {
	snap := a.proc.Snapshot()
	out, err := a.sim.Run(snap, competitorID, pitLap, trials)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// StoreSimulationResult caches a finished async simulation under its job id.
func (a *StrategyAggregator) StoreSimulationResult(ctx context.Context, jobID string, out *models.SimulationOutcome) error {
	if a.cache == nil {
		return fmt.Errorf("no cache configured")
	}
	return a.cache.Set(ctx, simulationKey(jobID), out, simulationTTL)
}

// SimulationResult fetches a finished async simulation by job id.
func (a *StrategyAggregator) SimulationResult(ctx context.Context, jobID string) (*models.SimulationOutcome, error) {
	if a.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	var out models.SimulationOutcome
	if err := a.cache.Get(ctx, simulationKey(jobID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func simulationKey(jobID string) string { return cache.GenerateKey("simulation", jobID) }
