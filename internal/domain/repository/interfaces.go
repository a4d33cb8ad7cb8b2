package repository

import (
	"context"

	"PitWall/internal/domain/models"
)

// TimingStream is the boundary to the live-timing ingestion collaborator.
type TimingStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.LapData, <-chan *models.PositionData, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher pushes recommendations to the transport collaborator.
type Publisher interface {
	PublishRecommendation(ctx context.Context, rec *models.StrategyRecommendation) error
	PublishBatch(ctx context.Context, recs []*models.StrategyRecommendation) error
	Close() error
}

// LapArchive is the append-only store of raw laps and sealed stints,
// kept for audit and replay. The live estimators never read from it.
type LapArchive interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreLap(ctx context.Context, lap *models.LapObservation) error
	StoreStint(ctx context.Context, stint *models.Stint) error
	Laps(ctx context.Context, competitorID int, limit int) ([]*models.LapObservation, error)
	AllLaps(ctx context.Context, limit int) ([]*models.LapObservation, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics is the domain-facing metrics recorder.
type Metrics interface {
	RecordLapProcessed(competitor string)
	RecordOutlierRejected(competitor string)
	RecordRecommendation(tag string)
	RecordDegSlope(competitor string, slope float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
