package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"PitWall/pkg/logger"
	"PitWall/pkg/queue"
)

// SimulationJobType is the queue message type for async Monte Carlo runs.
const SimulationJobType = "simulation.run"

// SimulationJobPayload is the queued request for one async simulation.
type SimulationJobPayload struct {
	JobID        string `json:"job_id"`
	CompetitorID int    `json:"competitor_id"`
	PitLap       int    `json:"pit_lap"`
	Trials       int    `json:"trials"`
}

// SimulationJob runs queued Monte Carlo requests off the API path and
// parks results in the cache under the job id.
type SimulationJob struct {
	agg    *StrategyAggregator
	logger *logger.Logger
}

// NewSimulationJob creates the queue handler for async simulations.
func NewSimulationJob(agg *StrategyAggregator, lgr *logger.Logger) *SimulationJob {
	return &SimulationJob{agg: agg, logger: lgr}
}

func (j *SimulationJob) Name() string { return "monte-carlo-simulation" }
func (j *SimulationJob) Type() string { return SimulationJobType }

// Handle runs one queued simulation and stores the outcome.
func (j *SimulationJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[SimulationJobPayload](payload)
	if err != nil {
		return fmt.Errorf("parse simulation payload: %w", err)
	}

	out, err := j.agg.Simulate(ctx, p.CompetitorID, p.PitLap, p.Trials)
	if err != nil {
		j.logger.Error("async simulation failed",
			logger.String("job_id", p.JobID),
			logger.Int("competitor", p.CompetitorID),
			logger.Error(err))
		return err
	}

	if err := j.agg.StoreSimulationResult(ctx, p.JobID, out); err != nil {
		return fmt.Errorf("store simulation result: %w", err)
	}
	j.logger.Info("async simulation complete",
		logger.String("job_id", p.JobID),
		logger.Int("competitor", p.CompetitorID),
		logger.Int("trials", out.Trials))
	return nil
}

var _ queue.Job = (*SimulationJob)(nil)

// EnqueueSimulation queues an async run and returns its job id.
func EnqueueSimulation(ctx context.Context, q queue.QueueService, competitorID, pitLap, trials int) (string, error) {
	jobID := uuid.NewString()
	payload := SimulationJobPayload{
		JobID:        jobID,
		CompetitorID: competitorID,
		PitLap:       pitLap,
		Trials:       trials,
	}
	if err := q.PublishMessage(ctx, SimulationJobType, payload); err != nil {
		return "", fmt.Errorf("enqueue simulation: %w", err)
	}
	return jobID, nil
}
