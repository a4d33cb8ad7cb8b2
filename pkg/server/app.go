package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PitWall/internal/handler/api"
	mid "PitWall/internal/middleware"
	"PitWall/internal/usecase"
	pkgch "PitWall/pkg/clickhouse"
	"PitWall/pkg/config"
	xhttp "PitWall/pkg/http"
	pkgkafka "PitWall/pkg/kafka"
	applogger "PitWall/pkg/logger"
	"PitWall/pkg/queue"

	"github.com/labstack/echo/v4"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	collector  *usecase.FeedCollector
	consumer   *pkgkafka.Consumer
	kh         *usecase.KafkaLapsHandler
	pipe       *mid.LapPipeline
	chClient   *pkgch.Client
	queue      *queue.RedisQueue
	handler    *api.StrategyEchoHandler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	lgr *applogger.Logger,
	collector *usecase.FeedCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaLapsHandler,
	pipe *mid.LapPipeline,
	chClient *pkgch.Client,
	q *queue.RedisQueue,
	handler *api.StrategyEchoHandler,
) *App {
	return &App{
		cfg:       cfg,
		logger:    lgr,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		pipe:      pipe,
		chClient:  chClient,
		queue:     q,
		handler:   handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	// Aggregate repeated error logs onto the queue instead of flooding it.
	if a.queue != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          usecase.LogDrainJobType,
			Publisher:      a.queue,
		})
	}

	a.handler.SetHealthCheck(a.healthCheck)
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// The ordering pipeline is shared by every ingest path; it runs for
	// the whole server lifetime.
	if a.pipe != nil {
		a.pipe.Start(ctx)
	}

	// Start live feed collector when a feed is configured
	if a.cfg.Feed.WebSocketURL != "" {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("collector error", applogger.Error(err))
			}
		}()
		l.Info("collector started",
			applogger.String("session", a.cfg.Feed.SessionID),
			applogger.String("track", a.cfg.Race.Track))
	}

	// Start laps bridge consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger

	if a.queue != nil {
		l.RemoveCollector()
	}

	if a.cfg.Feed.WebSocketURL != "" {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// All ingest paths are stopped; drain the pipeline last.
	if a.pipe != nil {
		a.pipe.Stop()
	}

	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			l.Warn("queue stop error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}

// healthCheck probes infrastructure dependencies for /api/health.
func (a *App) healthCheck(c echo.Context) map[string]string {
	status := make(map[string]string)
	if a.chClient != nil {
		if err := a.chClient.Health(c.Request().Context()); err != nil {
			status["clickhouse"] = "down"
		} else {
			status["clickhouse"] = "ok"
		}
	}
	if a.cfg.Feed.WebSocketURL != "" {
		if a.collector.IsConnected() {
			status["feed"] = "connected"
		} else {
			status["feed"] = "disconnected"
		}
	}
	return status
}
