package di

import (
	"context"
	"time"

	"go.uber.org/zap"

	"vaultgraph/application/commands/bus"
	"vaultgraph/application/ports"
	querybus "vaultgraph/application/queries/bus"
	"vaultgraph/application/services"
	"vaultgraph/infrastructure/cache"
	"vaultgraph/infrastructure/config"
	"vaultgraph/infrastructure/metadata"
	"vaultgraph/infrastructure/observability"
	"vaultgraph/interfaces/http/rest"
	"vaultgraph/pkg/auth"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Cache     *cache.GraphCache
	Metrics   *observability.Collector
	Tracing   *observability.TracerProvider
	Breaker   *metadata.ResilientProvider
	Provider  ports.MetadataProvider
	Publisher ports.EventPublisher
	Graphs    *services.GraphService
	Validator *auth.JWTValidator

	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus
	Router     *rest.Router

	// nil unless metadata files are watched
	Watcher *metadata.Watcher
}

// Start launches the background workers: cache expiry and, when configured,
// the metadata watcher.
func (c *Container) Start(ctx context.Context) error {
	c.Cache.StartCleanup(ctx, c.Config.CacheTTL/2)
	if c.Watcher != nil {
		if err := c.Watcher.Start(); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown stops the workers and flushes telemetry
func (c *Container) Shutdown(ctx context.Context) {
	if c.Watcher != nil {
		c.Watcher.Stop()
	}

	done := make(chan struct{})
	go func() {
		c.Graphs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.Logger.Warn("Gave up waiting for background graph rebuilds")
	}

	if c.Tracing != nil {
		flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := c.Tracing.Shutdown(flushCtx); err != nil {
			c.Logger.Error("Failed to shut down tracing", zap.Error(err))
		}
	}

	_ = c.Logger.Sync()
}
