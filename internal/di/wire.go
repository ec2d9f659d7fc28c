//go:build wireinject
// +build wireinject

package di

import (
	"FinRisk/pkg/config"
	"FinRisk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application with
// a cleanup that releases infrastructure clients.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisClient,
		ProvideCaches,
		ProvideSubmissionStore,
		ProvideQueue,
		ProvideKafkaProducer,
		ProvideEventPublisher,

		// Analytics service adapters
		ProvideAnalyticsBase,
		ProvideMarketData,
		ProvideAIForecaster,
		ProvidePredictionSink,

		// Use cases
		ProvideBoardRegistry,
		ProvideForecastUseCase,
		ProvideActualCandlesHandler,
		ProvideRefresher,

		// Transport
		ProvideKafkaConsumer,
		ProvideBoardsHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil, nil
}
