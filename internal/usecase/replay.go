package usecase

import (
	"context"
	"fmt"
	"sort"

	"PitWall/internal/domain/models"
	drepo "PitWall/internal/domain/repository"
	"PitWall/pkg/logger"
)

// Replayer re-drives archived laps through a fresh processing chain, so a
// session can be analyzed after the fact with different estimator settings.
// Archived flags are ignored; the filter re-judges every lap.
type Replayer struct {
	archive drepo.LapArchive
	fresh   func() *TickProcessor
	logger  *logger.Logger
}

// ReplayResult summarizes one replay run: how much of the archive was
// loaded, how many laps the chain accepted, and the per-competitor
// estimates the rebuilt models converged to.
type ReplayResult struct {
	LapsLoaded   int                          `json:"laps_loaded"`
	LapsReplayed int                          `json:"laps_replayed"`
	Summaries    []*models.DegradationSummary `json:"summaries,omitempty"`
}

// NewReplayer creates a replayer over the lap archive. fresh must return a
// new, empty TickProcessor on every call; replaying into live race state
// would corrupt it.
func NewReplayer(archive drepo.LapArchive, fresh func() *TickProcessor, lgr *logger.Logger) *Replayer {
	return &Replayer{archive: archive, fresh: fresh, logger: lgr}
}

// Replay loads archived laps and feeds them, in race order, through a
// fresh processing chain. competitorID > 0 restricts the replay to one
// competitor; 0 replays the whole field.
func (r *Replayer) Replay(ctx context.Context, competitorID, limit int) (*ReplayResult, error) {
	var laps []*models.LapObservation
	var err error
	if competitorID > 0 {
		laps, err = r.archive.Laps(ctx, competitorID, limit)
	} else {
		laps, err = r.archive.AllLaps(ctx, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("load archived laps: %w", err)
	}
	if len(laps) == 0 {
		return &ReplayResult{}, nil
	}

	// Race order first, then stint order for same-lap records.
	sort.SliceStable(laps, func(i, j int) bool {
		if laps[i].RaceLap != laps[j].RaceLap {
			return laps[i].RaceLap < laps[j].RaceLap
		}
		return laps[i].LapInStint < laps[j].LapInStint
	})

	proc := r.fresh()
	processed := 0
	for _, obs := range laps {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		lap := &models.LapData{
			CompetitorID: obs.CompetitorID,
			LapNumber:    obs.RaceLap,
			LapTime:      obs.LapTime,
			Compound:     string(obs.Compound),
			TyreAge:      obs.LapInStint,
			Caution:      obs.Caution,
		}
		if err := proc.ProcessLap(ctx, lap); err != nil {
			r.logger.Warn("replay lap skipped",
				logger.Int("competitor", obs.CompetitorID),
				logger.Int("race_lap", obs.RaceLap),
				logger.Error(err))
			continue
		}
		processed++
	}

	res := &ReplayResult{LapsLoaded: len(laps), LapsReplayed: processed}
	ids := proc.Registry().CompetitorIDs()
	sort.Ints(ids)
	for _, id := range ids {
		s, err := proc.Registry().Summary(id, 0)
		if err != nil {
			continue // below the clean-lap minimum, nothing to report
		}
		res.Summaries = append(res.Summaries, s)
	}

	r.logger.Info("replay complete",
		logger.Int("laps", processed),
		logger.Int("archived", len(laps)))
	return res, nil
}
