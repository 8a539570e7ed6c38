//go:build wireinject
// +build wireinject

package di

import (
	"LoadCoach/pkg/config"
	"LoadCoach/pkg/server"

	"github.com/google/wire"
)

// CoreSet builds the modeling and recommendation graph shared by the server
// and the command line.
var CoreSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideInfra,

	// Storage
	ProvideHistoryStore,
	ProvideCacheService,
	ProvideRecommendationCache,
	ProvideArtifactStore,

	// Modeling
	ProvideExtractor,
	ProvideRegistry,
	ProvideTrainer,
	ProvidePredictor,

	// Use cases
	ProvideLoadUseCase,
	ProvideAnalyticsPipeline,
	ProvideEngine,
	ProvideTrainingUseCase,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		CoreSet,

		// Background work
		ProvideQueue,
		ProvideTrainUserJob,
		ProvideWorkoutEventsHandler,
		ProvideKafkaConsumer,

		// HTTP
		ProvideLimiter,
		ProvideHTTPHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeServices wires the use cases without any listener.
func InitializeServices(cfg *config.Config) (*Services, func(), error) {
	wire.Build(
		CoreSet,
		ProvideServices,
	)
	return nil, nil, nil
}
