package usecase

import (
	"context"
	"fmt"

	"PitWall/pkg/logger"
	"PitWall/pkg/queue"
)

// LogDrainJobType is the queue message type for aggregated error batches.
const LogDrainJobType = "logs.aggregated"

// LogDrainJob consumes aggregated error-log batches off the queue and
// re-emits one compact line per distinct error. Emitted at warn level so
// the drain never feeds the collector again.
type LogDrainJob struct {
	logger *logger.Logger
}

// NewLogDrainJob creates the queue handler for aggregated logs.
func NewLogDrainJob(lgr *logger.Logger) *LogDrainJob {
	return &LogDrainJob{logger: lgr}
}

func (j *LogDrainJob) Name() string { return "aggregated-log-drain" }
func (j *LogDrainJob) Type() string { return LogDrainJobType }

// Handle logs each aggregated entry with its repeat count.
func (j *LogDrainJob) Handle(ctx context.Context, payload interface{}) error {
	entries, err := queue.ParsePayload[[]logger.AggregatedLogEntry](payload)
	if err != nil {
		return fmt.Errorf("parse aggregated logs: %w", err)
	}

	for _, e := range *entries {
		j.logger.Warn("aggregated error",
			logger.String("message", e.Message),
			logger.String("caller", e.Caller),
			logger.Int("count", e.Count),
			logger.String("first_seen", e.FirstSeen.Format("15:04:05")),
			logger.String("last_seen", e.LastSeen.Format("15:04:05")))
	}
	return nil
}

var _ queue.Job = (*LogDrainJob)(nil)
