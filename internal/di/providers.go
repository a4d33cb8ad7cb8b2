package di

import (
	"context"
	"fmt"
	"time"

	"PitWall/internal/domain/models"
	"PitWall/internal/domain/repository"
	"PitWall/internal/handler/api"
	mid "PitWall/internal/middleware"
	internalrepo "PitWall/internal/repository"
	"PitWall/internal/service/timingfeed"
	"PitWall/internal/services/degradation"
	"PitWall/internal/services/features"
	"PitWall/internal/services/simulation"
	"PitWall/internal/services/strategy"
	"PitWall/internal/usecase"
	pkgcache "PitWall/pkg/cache"
	pkgch "PitWall/pkg/clickhouse"
	"PitWall/pkg/config"
	pkgkafka "PitWall/pkg/kafka"
	applogger "PitWall/pkg/logger"
	"PitWall/pkg/metrics"
	"PitWall/pkg/queue"
	"PitWall/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	if cfg.Environment == "development" {
		level = "debug"
	}
	return applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer when a laps topic is
// configured; nil disables the bridge ingest path.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Kafka.LapsTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideLapArchive creates the ClickHouse lap archive and ensures its schema.
func ProvideLapArchive(chClient *pkgch.Client, lgr *applogger.Logger) (repository.LapArchive, error) {
	archive := internalrepo.NewCHLapArchive(chClient)
	archive.SetLogger(lgr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		return nil, fmt.Errorf("lap archive init: %w", err)
	}
	return archive, nil
}

// ProvidePublisher creates the Kafka recommendation publisher.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideTimingStream creates the live timing WebSocket stream.
func ProvideTimingStream(cfg *config.Config) repository.TimingStream {
	return timingfeed.New(
		cfg.Feed.APIKey,
		cfg.Feed.RestURL,
		cfg.Feed.WebSocketURL,
		cfg.Feed.SessionID,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
}

// ProvideRegistry creates the per-competitor model registry. Sealed stints
// are archived via the seal hook; the lap history lives in the lap archive
// already, so only the stint record itself is written.
func ProvideRegistry(cfg *config.Config, archive repository.LapArchive, lgr *applogger.Logger) *degradation.Registry {
	sealHook := func(competitorID int, sealed *degradation.Model) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stint := &models.Stint{
			CompetitorID: competitorID,
			Number:       sealed.StintNumber(),
			Compound:     sealed.Compound(),
			Sealed:       true,
		}
		if err := archive.StoreStint(ctx, stint); err != nil {
			lgr.Warn("stint archive failed",
				applogger.Int("competitor", competitorID),
				applogger.Int("stint", sealed.StintNumber()),
				applogger.Error(err))
		}
	}
	return degradation.NewRegistry(
		degradation.WithRegistryLambda(cfg.Estimator.Lambda),
		degradation.WithRegistryOutlierSigma(cfg.Estimator.OutlierSigma),
		degradation.WithRegistryMinCleanLaps(cfg.Estimator.MinCleanLaps),
		degradation.WithSealHook(sealHook),
	)
}

// ProvideBuilder creates the lap feature builder.
func ProvideBuilder(cfg *config.Config) *features.Builder {
	return features.NewBuilder(cfg.Race.TotalLaps,
		features.WithTrafficGap(cfg.Estimator.TrafficGap),
	)
}

// ProvideEngine creates the decision engine.
func ProvideEngine() *strategy.Engine {
	return strategy.NewEngine(strategy.NewCalculator(0))
}

// ProvideSimulator creates the Monte Carlo outcome simulator.
func ProvideSimulator(cfg *config.Config) *simulation.Simulator {
	opts := []simulation.Option{
		simulation.WithSafetyCarProbability(cfg.Simulation.SCProbability),
		simulation.WithDefaultTrials(cfg.Simulation.Trials),
	}
	if cfg.Simulation.Workers > 0 {
		opts = append(opts, simulation.WithWorkers(cfg.Simulation.Workers))
	}
	if cfg.Simulation.Timeout > 0 {
		opts = append(opts, simulation.WithTimeout(cfg.Simulation.Timeout))
	}
	return simulation.NewSimulator(opts...)
}

// ProvideRaceConfig extracts the race context from config.
func ProvideRaceConfig(cfg *config.Config) usecase.RaceConfig {
	return usecase.RaceConfig{
		TotalLaps: cfg.Race.TotalLaps,
		PitLoss:   cfg.Race.PitLoss,
	}
}

// ProvideTickProcessor creates the lap processing chain.
func ProvideTickProcessor(
	raceCfg usecase.RaceConfig,
	builder *features.Builder,
	registry *degradation.Registry,
	engine *strategy.Engine,
	pub repository.Publisher,
	archive repository.LapArchive,
	m repository.Metrics,
) *usecase.TickProcessor {
	return usecase.NewTickProcessor(raceCfg, builder, registry, engine, pub, archive, m)
}

// ProvideLapPipeline creates the ordering pipeline every ingest path shares.
// The server owns its lifecycle.
func ProvideLapPipeline(proc *usecase.TickProcessor, m repository.Metrics) *mid.LapPipeline {
	return mid.NewLapPipeline(proc, m,
		mid.WithMaxRPS(5),
		mid.WithBufferSize(64),
	)
}

// ProvideFeedCollector creates the stream collector in front of the shared
// pipeline.
func ProvideFeedCollector(
	stream repository.TimingStream,
	proc *usecase.TickProcessor,
	m repository.Metrics,
	pipe *mid.LapPipeline,
) *usecase.FeedCollector {
	return usecase.NewFeedCollector(stream, proc, m, pipe)
}

// ProvideKafkaLapsHandler registers the handler for the laps bridge topic.
// Lap frames go through the same pipeline as the live feed, so both ingest
// paths keep per-competitor ordering.
func ProvideKafkaLapsHandler(cfg *config.Config, proc *usecase.TickProcessor, m repository.Metrics, pipe *mid.LapPipeline) *usecase.KafkaLapsHandler {
	return usecase.NewKafkaLapsHandler(cfg.Kafka.LapsTopic, pipe, proc, m)
}

// ProvideReplayer creates the archive replayer. Every replay runs on a
// fresh chain with no publisher and no archive, so it can never touch live
// race state or write laps back.
func ProvideReplayer(
	cfg *config.Config,
	raceCfg usecase.RaceConfig,
	archive repository.LapArchive,
	engine *strategy.Engine,
	m repository.Metrics,
	lgr *applogger.Logger,
) *usecase.Replayer {
	fresh := func() *usecase.TickProcessor {
		registry := degradation.NewRegistry(
			degradation.WithRegistryLambda(cfg.Estimator.Lambda),
			degradation.WithRegistryOutlierSigma(cfg.Estimator.OutlierSigma),
			degradation.WithRegistryMinCleanLaps(cfg.Estimator.MinCleanLaps),
		)
		builder := features.NewBuilder(cfg.Race.TotalLaps,
			features.WithTrafficGap(cfg.Estimator.TrafficGap),
		)
		return usecase.NewTickProcessor(raceCfg, builder, registry, engine, nil, nil, m)
	}
	return usecase.NewReplayer(archive, fresh, lgr)
}

// ProvideRedisCache creates the Redis cache client, or nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	host, port := splitHostPort(cfg.Redis.Addr)
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix("pitwall"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCacheService picks the cache backend: layered over Redis when
// available, in-process otherwise.
func ProvideCacheService(rc *pkgcache.RedisCache) pkgcache.Service {
	if rc != nil {
		return pkgcache.NewLayeredCache(rc)
	}
	return pkgcache.NewMemoryCache()
}

// ProvideAggregator creates the read-side strategy aggregator.
func ProvideAggregator(proc *usecase.TickProcessor, sim *simulation.Simulator, c pkgcache.Service) *usecase.StrategyAggregator {
	return usecase.NewStrategyAggregator(proc, sim, c)
}

// ProvideQueue creates the Redis-backed job queue with the simulation and
// log-drain jobs registered, or nil when Redis is disabled.
func ProvideQueue(cfg *config.Config, lgr *applogger.Logger, rc *pkgcache.RedisCache, agg *usecase.StrategyAggregator) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(lgr, &queue.QueueConfig{
		Workers:    2,
		QueueSize:  256,
		RetryLimit: 3,
		RetryDelay: 2 * time.Second,
	}, rc.Client(), queue.ModeProducerConsumer)
	q.RegisterJobs([]queue.Job{
		usecase.NewSimulationJob(agg, lgr),
		usecase.NewLogDrainJob(lgr),
	})
	if err := q.Start(); err != nil {
		lgr.Error("queue start failed", applogger.Error(err))
		return nil
	}
	return q
}

// ProvideStrategyHandler creates the HTTP API handler.
func ProvideStrategyHandler(lgr *applogger.Logger, agg *usecase.StrategyAggregator, replayer *usecase.Replayer, q *queue.RedisQueue) *api.StrategyEchoHandler {
	var qs queue.QueueService
	if q != nil {
		qs = q
	}
	return api.NewStrategyEchoHandler(lgr, agg, replayer, qs)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *applogger.Logger,
	collector *usecase.FeedCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaLapsHandler,
	pipe *mid.LapPipeline,
	chClient *pkgch.Client,
	q *queue.RedisQueue,
	handler *api.StrategyEchoHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, lgr, collector, consumer, kh, pipe, chClient, q, handler)
}

func splitHostPort(addr string) (string, int) {
	host, port := "localhost", 6379
	if addr == "" {
		return host, port
	}
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			host = addr[:i]
			p := 0
			for _, ch := range addr[i+1:] {
				if ch < '0' || ch > '9' {
					return host, port
				}
				p = p*10 + int(ch-'0')
			}
			if p > 0 {
				port = p
			}
			return host, port
		}
	}
	return addr, port
}
