//go:build wireinject
// +build wireinject

package di

import (
	"TradeMood/pkg/config"
	"TradeMood/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideSignalStore,
		ProvidePublisher,

		// Collaborators
		ProvideSampleSource,
		ProvideScorer,
		ProvidePriceFeed,
		ProvideCalendar,

		// Pipeline
		ProvideTrendCache,
		ProvidePersistPipeline,
		ProvidePositionTracker,
		ProvideCycleRunner,
		ProvideScheduler,
		ProvideSamplesHandler,

		// Presentation
		ProvideStatusHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
