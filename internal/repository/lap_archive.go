package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PitWall/internal/domain/models"
	domrepo "PitWall/internal/domain/repository"
	pkgch "PitWall/pkg/clickhouse"
	applogger "PitWall/pkg/logger"
)

// CHLapArchive implements LapArchive backed by ClickHouse. Laps are
// append-only; sealed stints are written once and never updated.
type CHLapArchive struct {
	client *pkgch.Client
	db     *sql.DB
	l      *applogger.Logger
}

func NewCHLapArchive(ch *pkgch.Client) *CHLapArchive {
	return &CHLapArchive{client: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (a *CHLapArchive) SetLogger(l *applogger.Logger) { a.l = l }

var archiveSchema = []string{
	`CREATE TABLE IF NOT EXISTS race_laps (
        recorded_at   DateTime64(3),
        competitor_id Int32,
        race_lap      Int32,
        lap_in_stint  Int32,
        lap_time      Float64,
        compound      LowCardinality(String),
        caution       UInt8,
        traffic       UInt8,
        outlier       UInt8
    ) ENGINE = MergeTree()
    ORDER BY (competitor_id, race_lap)`,
	`CREATE TABLE IF NOT EXISTS race_stints (
        competitor_id Int32,
        stint_number  Int32,
        compound      LowCardinality(String),
        start_lap     Int32,
        laps          Int32,
        sealed_at     DateTime64(3)
    ) ENGINE = MergeTree()
    ORDER BY (competitor_id, stint_number)`,
}

func (a *CHLapArchive) Init(ctx context.Context) error {
	if err := a.client.InitSchema(ctx, archiveSchema); err != nil {
		return fmt.Errorf("archive schema: %w", err)
	}
	return a.client.Health(ctx)
}

func (a *CHLapArchive) StoreLap(ctx context.Context, lap *models.LapObservation) error {
	if lap == nil {
		return nil
	}
	const q = `INSERT INTO race_laps
        (recorded_at, competitor_id, race_lap, lap_in_stint, lap_time, compound, caution, traffic, outlier)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	recordedAt := lap.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	_, err := a.db.ExecContext(ctx, q,
		recordedAt,
		lap.CompetitorID,
		lap.RaceLap,
		lap.LapInStint,
		lap.LapTime,
		string(lap.Compound),
		boolToUInt8(lap.Caution),
		boolToUInt8(lap.Traffic),
		boolToUInt8(lap.Outlier),
	)
	if err != nil {
		if a.l != nil {
			a.l.Error("clickhouse store_lap error",
				applogger.Int("competitor", lap.CompetitorID),
				applogger.Int("race_lap", lap.RaceLap),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store lap: %w", err)
	}
	return nil
}

func (a *CHLapArchive) StoreStint(ctx context.Context, stint *models.Stint) error {
	if stint == nil {
		return nil
	}
	const q = `INSERT INTO race_stints
        (competitor_id, stint_number, compound, start_lap, laps, sealed_at)
        VALUES (?, ?, ?, ?, ?, ?)`
	_, err := a.db.ExecContext(ctx, q,
		stint.CompetitorID,
		stint.Number,
		string(stint.Compound),
		stint.StartLap,
		len(stint.Laps),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("store stint: %w", err)
	}

	// Archive the stint's laps in one multi-row insert. A stint is never
	// longer than a race, so no chunking is needed.
	if len(stint.Laps) == 0 {
		return nil
	}
	values := make([]string, 0, len(stint.Laps))
	args := make([]interface{}, 0, len(stint.Laps)*9)
	for _, lap := range stint.Laps {
		recordedAt := lap.RecordedAt
		if recordedAt.IsZero() {
			recordedAt = time.Now()
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			recordedAt,
			lap.CompetitorID,
			lap.RaceLap,
			lap.LapInStint,
			lap.LapTime,
			string(lap.Compound),
			boolToUInt8(lap.Caution),
			boolToUInt8(lap.Traffic),
			boolToUInt8(lap.Outlier),
		)
	}
	batch := fmt.Sprintf(`INSERT INTO race_laps
        (recorded_at, competitor_id, race_lap, lap_in_stint, lap_time, compound, caution, traffic, outlier)
        VALUES %s`, strings.Join(values, ","))
	if _, err := a.db.ExecContext(ctx, batch, args...); err != nil {
		return fmt.Errorf("store stint laps: %w", err)
	}
	if a.l != nil {
		a.l.Info("stint archived",
			applogger.Int("competitor", stint.CompetitorID),
			applogger.Int("stint", stint.Number),
			applogger.Int("laps", len(stint.Laps)),
		)
	}
	return nil
}

func (a *CHLapArchive) Laps(ctx context.Context, competitorID int, limit int) ([]*models.LapObservation, error) {
	const q = `SELECT recorded_at, competitor_id, race_lap, lap_in_stint, lap_time, compound, caution, traffic, outlier
        FROM race_laps
        WHERE competitor_id = ?
        ORDER BY race_lap ASC
        LIMIT ?`
	rows, err := a.db.QueryContext(ctx, q, competitorID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query laps: %w", err)
	}
	defer rows.Close()
	return scanLaps(rows)
}

func (a *CHLapArchive) AllLaps(ctx context.Context, limit int) ([]*models.LapObservation, error) {
	const q = `SELECT recorded_at, competitor_id, race_lap, lap_in_stint, lap_time, compound, caution, traffic, outlier
        FROM race_laps
        ORDER BY race_lap ASC, competitor_id ASC
        LIMIT ?`
	rows, err := a.db.QueryContext(ctx, q, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query all laps: %w", err)
	}
	defer rows.Close()
	return scanLaps(rows)
}

func (a *CHLapArchive) Health(ctx context.Context) error {
	return a.client.Health(ctx)
}

func (a *CHLapArchive) Close() error {
	return nil // pool owned by pkg client
}

func scanLaps(rows *sql.Rows) ([]*models.LapObservation, error) {
	out := make([]*models.LapObservation, 0, 256)
	for rows.Next() {
		var (
			lap                       models.LapObservation
			compound                  string
			caution, traffic, outlier uint8
		)
		if err := rows.Scan(&lap.RecordedAt, &lap.CompetitorID, &lap.RaceLap, &lap.LapInStint,
			&lap.LapTime, &compound, &caution, &traffic, &outlier); err != nil {
			return nil, fmt.Errorf("scan lap: %w", err)
		}
		lap.Compound = models.ParseCompound(compound)
		lap.Caution = caution != 0
		lap.Traffic = traffic != 0
		lap.Outlier = outlier != 0
		out = append(out, &lap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 100000
	}
	return limit
}

var _ domrepo.LapArchive = (*CHLapArchive)(nil)
