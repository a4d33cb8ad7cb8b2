package models

import "time"

// Compound identifies the tyre compound a stint is run on.
type Compound string

const (
	CompoundSoft         Compound = "SOFT"
	CompoundMedium       Compound = "MEDIUM"
	CompoundHard         Compound = "HARD"
	CompoundIntermediate Compound = "INTERMEDIATE"
	CompoundWet          Compound = "WET"
	CompoundUnknown      Compound = "UNKNOWN"
)

// ParseCompound normalizes a raw compound string from the timing feed.
func ParseCompound(s string) Compound {
	switch Compound(s) {
	case CompoundSoft, CompoundMedium, CompoundHard, CompoundIntermediate, CompoundWet:
		return Compound(s)
	default:
		return CompoundUnknown
	}
}

// LapObservation is a single recorded lap for one competitor.
// Immutable once recorded; outlier/traffic flags mark laps that are kept in
// history but excluded from estimator training.
type LapObservation struct {
	CompetitorID int       `json:"competitor_id"`
	RaceLap      int       `json:"race_lap"`
	LapInStint   int       `json:"lap_in_stint"`
	LapTime      float64   `json:"lap_time"` // seconds
	Compound     Compound  `json:"compound"`
	Caution      bool      `json:"caution"`
	Traffic      bool      `json:"traffic"`
	Outlier      bool      `json:"outlier"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Stint is a competitor's continuous run on one tyre set. A stint is sealed
// when a pit stop is detected; sealed stints are read-only history.
type Stint struct {
	CompetitorID int              `json:"competitor_id"`
	Number       int              `json:"number"`
	Compound     Compound         `json:"compound"`
	StartLap     int              `json:"start_lap"`
	Laps         []LapObservation `json:"laps"`
	Sealed       bool             `json:"sealed"`
}

// LapFeature is the unit consumed by the degradation estimator: one lap
// observation enriched with context derived from neighboring competitors.
type LapFeature struct {
	CompetitorID    int
	RaceLap         int
	LapInStint      int
	LapTime         float64
	BestLapTime     float64
	GapAhead        float64 // seconds; <0 means unknown/leading
	InTraffic       bool
	TrafficSeverity float64 // [0,1]; 1 means fully compromised by dirty air
	Caution         bool
	TrackEvolution  float64 // absolute race lap / total laps, in [0,1]
	Compound        Compound
}

// DegradationParameters is a snapshot of one model's estimate. Owned by a
// single degradation model; callers receive copies.
type DegradationParameters struct {
	BasePace   float64       `json:"base_pace"` // intercept, seconds
	DegSlope   float64       `json:"deg_slope"` // seconds per lap
	Confidence float64       `json:"confidence"`
	Covariance [2][2]float64 `json:"-"`
}

// DegradationSummary is the read model exposed to the API/transport layer.
type DegradationSummary struct {
	CompetitorID int       `json:"competitor_id"`
	StintNumber  int       `json:"stint_number"`
	Compound     Compound  `json:"compound"`
	BasePace     float64   `json:"base_pace"`
	DegSlope     float64   `json:"deg_slope"`
	CliffRisk    float64   `json:"cliff_risk"`
	Confidence   float64   `json:"confidence"`
	CleanLaps    int       `json:"clean_laps"`
	PredictedNext []float64 `json:"predicted_next"`
}

// LapData is the per-lap record consumed from the ingestion collaborator.
type LapData struct {
	CompetitorID int     `json:"competitor_id"`
	LapNumber    int     `json:"lap_number"`
	LapTime      float64 `json:"lap_time"`
	Sector1      float64 `json:"sector_1,omitempty"`
	Sector2      float64 `json:"sector_2,omitempty"`
	Sector3      float64 `json:"sector_3,omitempty"`
	Compound     string  `json:"compound"`
	TyreAge      int     `json:"tyre_age"`
	PitOut       bool    `json:"pit_out"`
	Caution      bool    `json:"caution"`
}

// PositionData is the per-tick classification record for one competitor.
type PositionData struct {
	CompetitorID int     `json:"competitor_id"`
	Position     int     `json:"position"`
	GapToLeader  float64 `json:"gap_to_leader"`
	GapAhead     float64 `json:"gap_ahead"`  // -1 when leading
	GapBehind    float64 `json:"gap_behind"` // -1 when last
	AheadID      int     `json:"ahead_id"`
	BehindID     int     `json:"behind_id"`
}

// CompetitorSnapshot is the read-only per-competitor view handed to the
// outcome simulator. It carries no live estimator state.
type CompetitorSnapshot struct {
	CompetitorID int
	Position     int
	BasePace     float64
	DegSlope     float64
	TyreAge      int
	Compound     Compound
	GapToLeader  float64
}

// RaceSnapshot is the immutable race-state view a simulation run reads.
type RaceSnapshot struct {
	CurrentLap  int
	TotalLaps   int
	PitLoss     float64
	SafetyCar   bool
	Competitors []CompetitorSnapshot
}

// Remaining returns the number of laps left to run.
func (s RaceSnapshot) Remaining() int {
	if s.TotalLaps <= s.CurrentLap {
		return 0
	}
	return s.TotalLaps - s.CurrentLap
}

// Competitor returns the snapshot for one competitor, if present.
func (s RaceSnapshot) Competitor(id int) (CompetitorSnapshot, bool) {
	for _, c := range s.Competitors {
		if c.CompetitorID == id {
			return c, true
		}
	}
	return CompetitorSnapshot{}, false
}
