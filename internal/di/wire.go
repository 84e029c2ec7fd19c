//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/gurubamal/iimcat-sub002/pkg/config"
	"github.com/gurubamal/iimcat-sub002/pkg/server"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideRegisterer,
	ProvideMetrics,
	ProvideClickHouseClient,
	ProvideKafkaProducer,
	ProvideKafkaConsumer,
	ProvideRedisCache,
	ProvideSnapshotCache,
	ProvideQuoteStream,
)

var storeSet = wire.NewSet(
	ProvideMarketStore,
	ProvideDecisionStore,
	ProvideOutcomeStore,
	ProvideDecisionSink,
)

var collaboratorSet = wire.NewSet(
	ProvideBridgeBase,
	ProvideCatalystProvider,
	ProvideCrisisProvider,
	ProvideSupervisor,
	ProvideCollaborators,
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		infraSet,
		storeSet,
		collaboratorSet,

		ProvideEngine,
		ProvideBatchEvaluator,
		ProvideRunUseCase,
		ProvideRequestsHandler,
		ProvideScheduler,
		ProvideHTTPHandler,

		ProvideApp,
	)
	return &server.App{}, nil
}
