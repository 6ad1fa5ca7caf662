//go:build wireinject
// +build wireinject

package di

import (
	"VolSurf/pkg/config"
	"VolSurf/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideClickHouseClient,
		ProvideGridCache,

		// Observability
		ProvideLogger,
		ProvideMetrics,
		ProvideDomainMetrics,

		// Surface core and repositories
		ProvideEngine,
		ProvideSampleRepository,
		ProvideGridPublisher,

		// Use cases
		ProvideSampleIngestor,
		ProvideKafkaSamplesHandler,
		ProvideSurfaceQuery,
		ProvideSurfaceBroadcaster,

		// Transport
		ProvideSurfaceStream,
		ProvideRateLimiter,
		ProvideSurfaceHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
