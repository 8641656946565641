package services

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"vaultgraph/application/ports"
	"vaultgraph/domain/core/aggregates"
	"vaultgraph/domain/core/entities"
	"vaultgraph/domain/events"
	domainservices "vaultgraph/domain/services"
	pkgerrors "vaultgraph/pkg/errors"
)

const tracerName = "vaultgraph/application/services"

// GraphServiceConfig holds the engine settings
type GraphServiceConfig struct {
	DefaultVault   string
	DefaultOptions domainservices.BuildOptions

	// BuildTimeout bounds how long a caller waits for a build. Zero waits forever.
	BuildTimeout time.Duration

	// EagerRebuild rebuilds the default graph in the background after RefreshCache
	EagerRebuild bool
}

// GraphService is the engine behind every graph query. It owns the current
// vault, builds snapshots from the metadata provider and serves them from the
// cache. Published snapshots are never mutated; a rebuild swaps in a new one.
type GraphService struct {
	provider  ports.MetadataProvider
	cache     ports.GraphCache
	publisher ports.EventPublisher
	metrics   ports.GraphMetrics
	logger    *zap.Logger
	tracer    trace.Tracer
	config    GraphServiceConfig

	builder   *domainservices.GraphBuilder
	local     *domainservices.LocalGraphService
	tags      *domainservices.TagFilterService
	analytics *domainservices.GraphAnalyticsService

	vault    atomic.Pointer[string]
	group    singleflight.Group
	inflight sync.WaitGroup

	// generations counts invalidations per vault (vault -> *atomic.Uint64).
	// A build only publishes if no invalidation happened while it ran.
	generations sync.Map

	// lastGood holds the newest default-options graph of the current vault,
	// served when a build times out.
	lastGood sync.Map // vault -> *aggregates.Graph
}

// NewGraphService creates a new graph service. cache, publisher and metrics may be nil.
func NewGraphService(
	provider ports.MetadataProvider,
	cache ports.GraphCache,
	publisher ports.EventPublisher,
	metrics ports.GraphMetrics,
	logger *zap.Logger,
	config GraphServiceConfig,
) *GraphService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	s := &GraphService{
		provider:  provider,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		config:    config,
		builder:   domainservices.NewGraphBuilder(),
		local:     domainservices.NewLocalGraphService(),
		tags:      domainservices.NewTagFilterService(),
		analytics: domainservices.NewGraphAnalyticsService(),
	}
	vault := config.DefaultVault
	s.vault.Store(&vault)

	return s
}

// CurrentVault returns the vault the service is serving
func (s *GraphService) CurrentVault() string {
	return *s.vault.Load()
}

// DefaultOptions returns the build options used when a caller passes none
func (s *GraphService) DefaultOptions() domainservices.BuildOptions {
	return s.config.DefaultOptions
}

// SwitchVault points the service at another vault. Snapshots of the previous
// vault stay cached under their own keys.
func (s *GraphService) SwitchVault(ctx context.Context, vaultID string) error {
	vaultID = strings.TrimSpace(vaultID)
	if vaultID == "" {
		return pkgerrors.NewValidationError("vault id is required")
	}
	if strings.Contains(vaultID, ":") {
		return pkgerrors.NewValidationErrorf("vault id %q must not contain ':'", vaultID)
	}

	previous := *s.vault.Swap(&vaultID)
	if previous == vaultID {
		return nil
	}
	s.lastGood.Delete(previous)

	s.logger.Info("Switched vault",
		zap.String("previous", previous),
		zap.String("vault", vaultID),
	)
	s.publish(ctx, events.NewVaultSwitched(previous, vaultID, time.Now()))
	return nil
}

// RefreshCache discards every cached snapshot of the current vault. With
// EagerRebuild the default graph is rebuilt in the background; readers keep
// the last good snapshot as a timeout fallback until it lands.
func (s *GraphService) RefreshCache(ctx context.Context) error {
	vaultID := s.CurrentVault()
	gen, _, err := s.invalidate(ctx, vaultID)
	if err != nil {
		return err
	}
	s.publish(ctx, events.NewGraphInvalidated(vaultID, "refresh", time.Now()))

	if s.config.EagerRebuild {
		opts := s.config.DefaultOptions
		key := cacheKey(vaultID, opts)
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			_, _, _ = s.group.Do(flightKey(key, gen), func() (interface{}, error) {
				return s.build(context.WithoutCancel(ctx), vaultID, key, opts, gen), nil
			})
		}()
	}

	return nil
}

// InvalidateVault drops the cached snapshots of any vault without switching
// to it. Builds of that vault already in flight are not cached.
func (s *GraphService) InvalidateVault(ctx context.Context, vaultID string) (int, error) {
	_, removed, err := s.invalidate(ctx, vaultID)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, events.NewGraphInvalidated(vaultID, "metadata_changed", time.Now()))
	return removed, nil
}

// invalidate bumps the vault generation before touching the cache, which
// build relies on to spot a race with its own Set.
func (s *GraphService) invalidate(ctx context.Context, vaultID string) (uint64, int, error) {
	gen := s.generation(vaultID).Add(1)
	if s.cache == nil {
		return gen, 0, nil
	}

	removed, err := s.cache.DeletePrefix(ctx, vaultID+":")
	if err != nil {
		return gen, 0, pkgerrors.Wrapf(err, "invalidate cache for vault %s", vaultID)
	}
	s.logger.Debug("Invalidated cached graphs",
		zap.String("vault", vaultID),
		zap.Int("removed", removed),
	)
	return gen, removed, nil
}

// Wait blocks until background rebuilds have finished
func (s *GraphService) Wait() {
	s.inflight.Wait()
}

// GetGlobalGraph returns the full graph of the current vault
func (s *GraphService) GetGlobalGraph(ctx context.Context, opts domainservices.BuildOptions) (*aggregates.Graph, error) {
	return s.snapshot(ctx, opts)
}

// GetLocalGraph returns the ego-network of a document in the current vault
func (s *GraphService) GetLocalGraph(ctx context.Context, identifier string, depth int, opts domainservices.BuildOptions) (*aggregates.Graph, error) {
	if depth < 0 {
		return nil, pkgerrors.NewValidationErrorf("depth must be >= 0, got %d", depth)
	}

	graph, err := s.snapshot(ctx, opts)
	if err != nil {
		return nil, err
	}
	return s.local.Local(graph, identifier, depth)
}

// FilterByTag returns the neighbourhood of one tag in the current vault
func (s *GraphService) FilterByTag(ctx context.Context, tag string, opts domainservices.BuildOptions) (*aggregates.Graph, error) {
	graph, err := s.snapshot(ctx, opts)
	if err != nil {
		return nil, err
	}
	return s.tags.ByTag(graph, tag), nil
}

// GetGraphStats summarises the default graph
func (s *GraphService) GetGraphStats(ctx context.Context) (domainservices.GraphStats, error) {
	graph, err := s.snapshot(ctx, s.config.DefaultOptions)
	if err != nil {
		return domainservices.GraphStats{}, err
	}
	return s.analytics.Stats(graph), nil
}

// FindNode resolves an identifier against the default graph
func (s *GraphService) FindNode(ctx context.Context, identifier string) (*entities.Node, error) {
	graph, err := s.snapshot(ctx, s.config.DefaultOptions)
	if err != nil {
		return nil, err
	}
	return s.analytics.FindNode(graph, identifier), nil
}

// Neighbors lists nodes within depth hops of nodeID in the default graph
func (s *GraphService) Neighbors(ctx context.Context, nodeID string, depth int) ([]entities.Node, error) {
	if depth < 0 {
		return nil, pkgerrors.NewValidationErrorf("depth must be >= 0, got %d", depth)
	}

	graph, err := s.snapshot(ctx, s.config.DefaultOptions)
	if err != nil {
		return nil, err
	}
	return s.analytics.Neighbors(graph, nodeID, depth)
}

// ShortestPath finds a shortest path between two nodes of the default graph
func (s *GraphService) ShortestPath(ctx context.Context, fromID, toID string) ([]entities.Node, error) {
	graph, err := s.snapshot(ctx, s.config.DefaultOptions)
	if err != nil {
		return nil, err
	}
	return s.analytics.ShortestPath(graph, fromID, toID), nil
}

// MostConnected returns the hub nodes of the default graph
func (s *GraphService) MostConnected(ctx context.Context, limit int) ([]entities.Node, error) {
	if limit < 0 {
		return nil, pkgerrors.NewValidationErrorf("limit must be >= 0, got %d", limit)
	}

	graph, err := s.snapshot(ctx, s.config.DefaultOptions)
	if err != nil {
		return nil, err
	}
	return s.analytics.MostConnected(graph, limit)
}

// Orphans returns the unconnected nodes of the default graph
func (s *GraphService) Orphans(ctx context.Context) ([]entities.Node, error) {
	graph, err := s.snapshot(ctx, s.config.DefaultOptions)
	if err != nil {
		return nil, err
	}
	return s.analytics.Orphans(graph), nil
}

// ConnectivityOf reports how a node of the default graph is connected
func (s *GraphService) ConnectivityOf(ctx context.Context, nodeID string) (*domainservices.Connectivity, error) {
	graph, err := s.snapshot(ctx, s.config.DefaultOptions)
	if err != nil {
		return nil, err
	}
	return s.analytics.ConnectivityOf(graph, nodeID), nil
}

// snapshot returns the graph of the current vault for opts, building it when
// the cache misses. Concurrent builds of the same key share one provider call.
func (s *GraphService) snapshot(ctx context.Context, opts domainservices.BuildOptions) (*aggregates.Graph, error) {
	vaultID := s.CurrentVault()
	key := cacheKey(vaultID, opts)

	if s.cache != nil {
		if graph, ok := s.cache.Get(ctx, key); ok {
			s.metrics.RecordCacheHit()
			return graph, nil
		}
		s.metrics.RecordCacheMiss()
	}

	// The build outlives a caller that gives up, so later callers can use it.
	// Builds started before an invalidation are not joined after it.
	gen := s.generation(vaultID).Load()
	buildCtx := context.WithoutCancel(ctx)
	result := s.group.DoChan(flightKey(key, gen), func() (interface{}, error) {
		return s.build(buildCtx, vaultID, key, opts, gen), nil
	})

	var timeout <-chan time.Time
	if s.config.BuildTimeout > 0 {
		timer := time.NewTimer(s.config.BuildTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case res := <-result:
		return res.Val.(*aggregates.Graph), nil
	case <-timeout:
		s.metrics.RecordFallback("timeout")
		fallback := s.fallback(vaultID, opts)
		s.logger.Warn("Graph build timed out, serving fallback",
			zap.String("vault", vaultID),
			zap.Duration("timeout", s.config.BuildTimeout),
			zap.Int("nodes", fallback.NodeCount()),
		)
		return fallback, nil
	case <-ctx.Done():
		return nil, pkgerrors.NewTimeoutError("graph build").WithCause(ctx.Err())
	}
}

// build fetches metadata and builds one snapshot. Provider failures degrade
// to an empty graph which is not cached. A snapshot whose vault was
// invalidated during the build (gen is stale) is returned to its waiters but
// neither cached nor kept as a fallback.
func (s *GraphService) build(ctx context.Context, vaultID, key string, opts domainservices.BuildOptions, gen uint64) *aggregates.Graph {
	ctx, span := s.tracer.Start(ctx, "GraphService.build",
		trace.WithAttributes(
			attribute.String("vault.id", vaultID),
			attribute.String("build.options", opts.Key()),
		),
	)
	defer span.End()

	start := time.Now()
	records, err := s.provider.GetMetadata(ctx, vaultID)
	if err != nil {
		err = pkgerrors.NewMetadataUnavailableError(vaultID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "metadata unavailable")
		s.metrics.RecordBuild(vaultID, time.Since(start), 0, 0, err)
		s.metrics.RecordFallback("metadata_unavailable")
		s.logger.Warn("Metadata unavailable, serving empty graph",
			zap.String("vault", vaultID),
			zap.Error(err),
		)
		return aggregates.Empty()
	}

	graph, report := s.builder.BuildWithReport(records, opts)
	duration := time.Since(start)

	span.SetAttributes(
		attribute.Int("graph.nodes", graph.NodeCount()),
		attribute.Int("graph.edges", graph.EdgeCount()),
	)
	s.metrics.RecordBuild(vaultID, duration, graph.NodeCount(), graph.EdgeCount(), nil)
	s.logger.Debug("Built graph",
		zap.String("vault", vaultID),
		zap.String("options", opts.Key()),
		zap.Int("nodes", graph.NodeCount()),
		zap.Int("edges", graph.EdgeCount()),
		zap.Duration("duration", duration),
		zap.Any("report", report),
	)

	if s.generation(vaultID).Load() != gen {
		s.logger.Debug("Discarding graph built before invalidation", zap.String("vault", vaultID))
		return graph
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, graph); err != nil {
			s.logger.Warn("Failed to cache graph", zap.String("key", key), zap.Error(err))
		}
		// RefreshCache bumps the generation before it deletes, so an
		// invalidation that raced the Set is visible here.
		if s.generation(vaultID).Load() != gen {
			_ = s.cache.Delete(ctx, key)
			return graph
		}
	}
	if opts.Key() == s.config.DefaultOptions.Key() && vaultID == s.CurrentVault() {
		s.lastGood.Store(vaultID, graph)
	}
	s.publish(ctx, events.NewGraphRebuilt(vaultID, opts.Key(), graph.NodeCount(), graph.EdgeCount(), duration, time.Now()))

	return graph
}

// fallback is the last good default graph of vaultID. Other option sets
// fall back to an empty graph.
func (s *GraphService) fallback(vaultID string, opts domainservices.BuildOptions) *aggregates.Graph {
	if opts.Key() != s.config.DefaultOptions.Key() {
		return aggregates.Empty()
	}
	if graph, ok := s.lastGood.Load(vaultID); ok {
		return graph.(*aggregates.Graph)
	}
	return aggregates.Empty()
}

func (s *GraphService) generation(vaultID string) *atomic.Uint64 {
	gen, _ := s.generations.LoadOrStore(vaultID, new(atomic.Uint64))
	return gen.(*atomic.Uint64)
}

func (s *GraphService) publish(ctx context.Context, event events.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("eventType", event.GetEventType()),
			zap.Error(err),
		)
	}
}

// cacheKey is prefixed by the vault id; vault ids never contain ':', so
// DeletePrefix(vaultID+":") only matches that vault.
func cacheKey(vaultID string, opts domainservices.BuildOptions) string {
	return vaultID + ":" + opts.Key()
}

func flightKey(key string, gen uint64) string {
	return key + "@" + strconv.FormatUint(gen, 10)
}

type noopMetrics struct{}

func (noopMetrics) RecordBuild(string, time.Duration, int, int, error) {}
func (noopMetrics) RecordCacheHit()                                    {}
func (noopMetrics) RecordCacheMiss()                                   {}
func (noopMetrics) RecordFallback(string)                              {}
