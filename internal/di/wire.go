//go:build wireinject
// +build wireinject

package di

import (
	"QuantPulse/pkg/config"
	"QuantPulse/pkg/server"

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
		ProvideHTTPClient,
		ProvideClickHouseClient,
		ProvideCandleStore,

		// Feed and publishers
		ProvideCandleFeed,
		ProvideWSHub,
		ProvidePublishers,

		// Engine and use cases
		ProvideAssembler,
		ProvideSnapshotService,
		ProvideScheduler,

		// HTTP surface
		ProvideResponseCache,
		ProvideRateLimiter,
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
