package api

import (
	"errors"
	"net/http"

	models "PitWall/internal/domain/models"
	"PitWall/internal/usecase"
	xhttp "PitWall/pkg/http"
	xlogger "PitWall/pkg/logger"
	"PitWall/pkg/queue"

	"github.com/labstack/echo/v4"
)

// StrategyEchoHandler exposes the strategy core over HTTP.
type StrategyEchoHandler struct {
	logger   *xlogger.Logger
	agg      *usecase.StrategyAggregator
	replayer *usecase.Replayer  // nil disables archive replays
	queue    queue.QueueService // nil disables async simulations
	health   func(echo.Context) map[string]string
}

func NewStrategyEchoHandler(logger *xlogger.Logger, agg *usecase.StrategyAggregator, replayer *usecase.Replayer, q queue.QueueService) *StrategyEchoHandler {
	return &StrategyEchoHandler{logger: logger, agg: agg, replayer: replayer, queue: q}
}

// SetHealthCheck installs the dependency health probe used by /api/health.
func (h *StrategyEchoHandler) SetHealthCheck(fn func(echo.Context) map[string]string) {
	h.health = fn
}

func (h *StrategyEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/degradation/:competitor", h.Degradation)
	g.GET("/strategy/:competitor", h.Strategy)
	g.POST("/simulate", h.Simulate)
	g.GET("/simulate/:job", h.SimulationResult)
	g.POST("/replay", h.Replay)
	g.GET("/health", h.Health)
}

// Degradation returns the live degradation estimate for one competitor.
func (h *StrategyEchoHandler) Degradation(c echo.Context) error {
	req := &models.DegradationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.agg.Degradation(c.Request().Context(), req.CompetitorID, req.K)
	if err != nil {
		if errors.Is(err, models.ErrUnknownCompetitor) {
			return xhttp.NotFoundResponse(c, "unknown competitor")
		}
		if errors.Is(err, models.ErrInsufficientData) {
			return xhttp.DataResponse(c, http.StatusAccepted, "insufficient clean laps, estimate pending")
		}
		h.logger.Error("degradation usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Strategy returns the current recommendation for one competitor.
func (h *StrategyEchoHandler) Strategy(c echo.Context) error {
	req := &models.StrategyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rec, err := h.agg.Recommendation(c.Request().Context(), req.CompetitorID)
	if err != nil {
		if errors.Is(err, models.ErrUnknownCompetitor) {
			return xhttp.NotFoundResponse(c, "unknown competitor")
		}
		h.logger.Error("strategy usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, rec)
}

// Simulate runs a Monte Carlo projection. With async=true the run is
// queued and a job id is returned instead of the outcome.
func (h *StrategyEchoHandler) Simulate(c echo.Context) error {
	req := &models.SimulationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	if req.Async {
		if h.queue == nil {
			return xhttp.BadRequestResponse(c, "async simulations not enabled")
		}
		jobID, err := usecase.EnqueueSimulation(ctx, h.queue, req.CompetitorID, req.PitLap, req.Trials)
		if err != nil {
			h.logger.Error("enqueue simulation error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
		return xhttp.DataResponse(c, http.StatusAccepted, map[string]string{"job_id": jobID})
	}

	out, err := h.agg.Simulate(ctx, req.CompetitorID, req.PitLap, req.Trials)
	if err != nil {
		if errors.Is(err, models.ErrUnknownCompetitor) {
			return xhttp.NotFoundResponse(c, "unknown competitor")
		}
		h.logger.Error("simulate usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, out)
}

// SimulationResult fetches a finished async simulation by job id.
func (h *StrategyEchoHandler) SimulationResult(c echo.Context) error {
	jobID := c.Param("job")
	if jobID == "" {
		return xhttp.BadRequestResponse(c, "job id required")
	}

	out, err := h.agg.SimulationResult(c.Request().Context(), jobID)
	if err != nil {
		return xhttp.NotFoundResponse(c, "result not ready")
	}
	return xhttp.SuccessResponse(c, out)
}

// Replay re-drives archived laps through a fresh estimator chain and
// returns the rebuilt per-competitor estimates.
func (h *StrategyEchoHandler) Replay(c echo.Context) error {
	if h.replayer == nil {
		return xhttp.BadRequestResponse(c, "replay not enabled")
	}
	req := &models.ReplayRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.replayer.Replay(c.Request().Context(), req.CompetitorID, req.Limit)
	if err != nil {
		h.logger.Error("replay usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Health reports service and dependency status.
func (h *StrategyEchoHandler) Health(c echo.Context) error {
	status := map[string]string{"service": "ok"}
	if h.health != nil {
		for k, v := range h.health(c) {
			status[k] = v
		}
	}
	return xhttp.SuccessResponse(c, status)
}
