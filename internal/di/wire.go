//go:build wireinject
// +build wireinject

package di

import (
	"PitWall/pkg/config"
	"PitWall/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,
		ProvideCacheService,

		// Repositories
		ProvideLapArchive,
		ProvidePublisher,
		ProvideTimingStream,

		// Strategy core
		ProvideRegistry,
		ProvideBuilder,
		ProvideEngine,
		ProvideSimulator,
		ProvideRaceConfig,

		// Use cases
		ProvideTickProcessor,
		ProvideLapPipeline,
		ProvideFeedCollector,
		ProvideKafkaLapsHandler,
		ProvideReplayer,
		ProvideAggregator,
		ProvideQueue,

		// HTTP
		ProvideStrategyHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
