package models

import "time"

// Recommendation is the closed set of strategy verdicts.
type Recommendation string

const (
	RecommendStayOut     Recommendation = "STAY_OUT"
	RecommendExtendStint Recommendation = "EXTEND_STINT"
	RecommendConsiderPit Recommendation = "CONSIDER_PIT"
	RecommendPitNow      Recommendation = "PIT_NOW"
)

// PitWindow is the recommended stop-lap interval. IdealLap == 0 is the
// sentinel for "do not recommend pitting". When IdealLap > 0 the ordering
// MinLap <= IdealLap <= MaxLap holds.
type PitWindow struct {
	MinLap     int     `json:"min_lap"`
	IdealLap   int     `json:"ideal_lap"`
	MaxLap     int     `json:"max_lap"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Contains reports whether lap falls inside the window.
func (w PitWindow) Contains(lap int) bool {
	return w.IdealLap > 0 && lap >= w.MinLap && lap <= w.MaxLap
}

// StrategyRecommendation is recomputed every tick and superseded wholesale;
// the core never diffs it against a prior value.
type StrategyRecommendation struct {
	CompetitorID       int            `json:"competitor_id"`
	Recommendation     Recommendation `json:"recommendation"`
	Confidence         float64        `json:"confidence"`
	Reason             string         `json:"reason"`
	Window             PitWindow      `json:"pit_window"`
	UndercutThreat     bool           `json:"undercut_threat"`
	OvercutOpportunity bool           `json:"overcut_opportunity"`
	NextCompound       Compound       `json:"next_compound,omitempty"`
	Alternatives       []string       `json:"alternatives,omitempty"`
	Explanation        string         `json:"explanation"` // pit-wall display text
	GeneratedAt        time.Time      `json:"generated_at"`
}

// SimulationOutcome aggregates one Monte Carlo run. Derived purely from a
// snapshot; never cached beyond a single request by the core.
type SimulationOutcome struct {
	CompetitorID     int             `json:"competitor_id"`
	PitLap           int             `json:"pit_lap"`
	Trials           int             `json:"trials"`           // completed
	RequestedTrials  int             `json:"requested_trials"` // asked for
	PositionProbs    map[int]float64 `json:"position_probs"`
	ExpectedPosition float64         `json:"expected_position"`
	PositionStd      float64         `json:"position_std"`
	ExpectedPoints   float64         `json:"expected_points"`
	PointsStd        float64         `json:"points_std"`
	ProbWin          float64         `json:"prob_win"`
	ProbPodium       float64         `json:"prob_podium"`
	ProbPoints       float64         `json:"prob_points"`
	BestCase         int             `json:"best_case"`
	WorstCase        int             `json:"worst_case"`
	Confidence       float64         `json:"confidence"`
}

// Partial reports whether the run completed fewer trials than requested.
func (o SimulationOutcome) Partial() bool {
	return o.Trials < o.RequestedTrials
}
