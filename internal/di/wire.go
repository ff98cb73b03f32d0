//go:build wireinject
// +build wireinject

package di

import (
	"FinTrader/pkg/config"
	"FinTrader/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideSummaryCache,

		// Repositories
		ProvideTradeStore,
		ProvideEventPublisher,

		// Domain services
		ProvideNarrativeClient,
		ProvidePortfolio,
		ProvideScorer,
		ProvideGate,

		// Use cases
		ProvideEvaluator,
		ProvidePositionUpdater,
		ProvideTickPipeline,
		ProvideKafkaTickHandler,

		// HTTP
		ProvideRateLimiter,
		ProvideTradingHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
