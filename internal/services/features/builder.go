package features

import (
	"fmt"

	"PitWall/internal/domain/models"
)

// Builder derives estimator-ready lap features from raw timing records.
// One builder serves the whole session; it keeps only per-competitor best
// lap times, no estimator state.
type Builder struct {
	totalLaps  int
	trafficGap float64
	maxLapTime float64
	minLapTime float64
	best       map[int]float64
}

// BuilderOption configures Builder.
type BuilderOption func(*Builder)

// WithTrafficGap overrides the dirty-air gap threshold.
func WithTrafficGap(gap float64) BuilderOption {
	return func(b *Builder) {
		if gap > 0 {
			b.trafficGap = gap
		}
	}
}

// WithLapTimeBounds overrides the plausible lap-time range used for
// validation.
func WithLapTimeBounds(min, max float64) BuilderOption {
	return func(b *Builder) {
		if min > 0 && max > min {
			b.minLapTime = min
			b.maxLapTime = max
		}
	}
}

// NewBuilder creates a feature builder for a session of totalLaps laps.
func NewBuilder(totalLaps int, opts ...BuilderOption) *Builder {
	b := &Builder{
		totalLaps:  totalLaps,
		trafficGap: DefaultTrafficGap,
		minLapTime: 20.0,
		maxLapTime: 300.0,
		best:       make(map[int]float64),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build validates one raw lap and derives its feature record. A validation
// failure rejects the single observation and never touches builder state.
func (b *Builder) Build(lap *models.LapData, pos *models.PositionData) (models.LapFeature, error) {
	if lap == nil {
		return models.LapFeature{}, fmt.Errorf("lap data is nil")
	}
	if lap.LapTime <= 0 {
		return models.LapFeature{}, fmt.Errorf("lap %d competitor %d: non-positive lap time %.3f", lap.LapNumber, lap.CompetitorID, lap.LapTime)
	}
	if lap.LapTime < b.minLapTime || lap.LapTime > b.maxLapTime {
		return models.LapFeature{}, fmt.Errorf("lap %d competitor %d: implausible lap time %.3f", lap.LapNumber, lap.CompetitorID, lap.LapTime)
	}
	if lap.LapNumber < 1 || (b.totalLaps > 0 && lap.LapNumber > b.totalLaps) {
		return models.LapFeature{}, fmt.Errorf("competitor %d: lap number %d outside race distance %d", lap.CompetitorID, lap.LapNumber, b.totalLaps)
	}
	if lap.TyreAge < 0 {
		return models.LapFeature{}, fmt.Errorf("competitor %d: negative tyre age %d", lap.CompetitorID, lap.TyreAge)
	}

	gapAhead := -1.0
	if pos != nil && pos.GapAhead >= 0 {
		gapAhead = pos.GapAhead
	}

	best, ok := b.best[lap.CompetitorID]
	if !ok || lap.LapTime < best {
		best = lap.LapTime
		b.best[lap.CompetitorID] = best
	}

	evolution := 0.0
	if b.totalLaps > 0 {
		evolution = float64(lap.LapNumber) / float64(b.totalLaps)
	}

	return models.LapFeature{
		CompetitorID:    lap.CompetitorID,
		RaceLap:         lap.LapNumber,
		LapInStint:      lap.TyreAge,
		LapTime:         lap.LapTime,
		BestLapTime:     best,
		GapAhead:        gapAhead,
		InTraffic:       InTraffic(gapAhead, b.trafficGap),
		TrafficSeverity: TrafficSeverity(gapAhead, b.trafficGap),
		Caution:         lap.Caution,
		TrackEvolution:  evolution,
		Compound:        models.ParseCompound(lap.Compound),
	}, nil
}
