package models

// Requests for strategy HTTP endpoints. Defined in domain for consistency and reuse.

type DegradationRequest struct {
	CompetitorID int `param:"competitor" json:"competitor_id" validate:"required,gte=1"`
	K            int `query:"k" json:"k" default:"5" validate:"gte=1,lte=30"`
}

type StrategyRequest struct {
	CompetitorID int `param:"competitor" json:"competitor_id" validate:"required,gte=1"`
}

type SimulationRequest struct {
	CompetitorID int  `json:"competitor_id" validate:"required,gte=1"`
	PitLap       int  `json:"pit_lap" validate:"gte=0"`
	Trials       int  `json:"trials" default:"500" validate:"gte=1,lte=20000"`
	Async        bool `json:"async"`
}

type ReplayRequest struct {
	CompetitorID int `json:"competitor_id" validate:"gte=0"`
	Limit        int `json:"limit" default:"1000" validate:"gte=1,lte=100000"`
}
