package di

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vaultgraph/application/commands"
	"vaultgraph/application/commands/bus"
	"vaultgraph/application/ports"
	querybus "vaultgraph/application/queries/bus"
	"vaultgraph/application/queries/handlers"
	"vaultgraph/application/services"
	"vaultgraph/infrastructure/cache"
	"vaultgraph/infrastructure/config"
	"vaultgraph/infrastructure/messaging/eventbridge"
	"vaultgraph/infrastructure/metadata"
	"vaultgraph/infrastructure/observability"
	"vaultgraph/infrastructure/persistence/dynamodb"
	"vaultgraph/interfaces/http/rest"
	"vaultgraph/pkg/auth"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}

	return logger.With(
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
	), nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideGraphCache creates the snapshot cache
func ProvideGraphCache(cfg *config.Config, logger *zap.Logger) *cache.GraphCache {
	return cache.NewGraphCache(cfg.CacheMaxItems, cfg.CacheTTL, logger)
}

// ProvideCollector creates the Prometheus collector
func ProvideCollector(cfg *config.Config) *observability.Collector {
	return observability.NewCollector(strings.ReplaceAll(cfg.ServiceName, "-", "_"))
}

// ProvideTracing starts the OTLP exporter. Returns nil when tracing is off.
func ProvideTracing(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	if !cfg.EnableTracing {
		return nil, nil
	}
	return observability.InitTracing(ctx, cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
}

// ProvideResilientProvider creates the configured metadata source behind a
// circuit breaker
func ProvideResilientProvider(
	cfg *config.Config,
	client *awsdynamodb.Client,
	logger *zap.Logger,
) *metadata.ResilientProvider {
	var source ports.MetadataProvider
	switch cfg.MetadataSource {
	case config.MetadataSourceDynamoDB:
		source = dynamodb.NewMetadataRepository(client, cfg.TableName, logger)
	default:
		source = metadata.NewFileProvider(cfg.MetadataDir, logger)
	}

	return metadata.NewResilientProvider(source, metadata.BreakerConfig{
		Name:             "metadata-" + cfg.MetadataSource,
		MaxRequests:      cfg.BreakerMaxRequests,
		Interval:         cfg.BreakerInterval,
		Timeout:          cfg.BreakerTimeout,
		FailureThreshold: cfg.BreakerFailureThreshold,
	}, logger)
}

// ProvideMetadataProvider adds tracing on top of the breaker when enabled
func ProvideMetadataProvider(resilient *metadata.ResilientProvider, tp *observability.TracerProvider) ports.MetadataProvider {
	if tp == nil {
		return resilient
	}
	return observability.TraceProvider(resilient, tp.Tracer())
}

// ProvideEventPublisher creates the EventBridge publisher. Returns nil when
// events are off.
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if !cfg.EnableEvents {
		return nil
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideGraphService creates the graph engine
func ProvideGraphService(
	cfg *config.Config,
	provider ports.MetadataProvider,
	graphCache *cache.GraphCache,
	publisher ports.EventPublisher,
	collector *observability.Collector,
	logger *zap.Logger,
) *services.GraphService {
	return services.NewGraphService(provider, graphCache, publisher, collector, logger, services.GraphServiceConfig{
		DefaultVault:   cfg.DefaultVault,
		DefaultOptions: cfg.BuildOptions(),
		BuildTimeout:   cfg.BuildTimeout,
		EagerRebuild:   cfg.EagerRebuild,
	})
}

// ProvideCommandBus creates the command bus with every graph command registered
func ProvideCommandBus(graphs *services.GraphService, logger *zap.Logger) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(bus.LoggingMiddleware(logger))
	if err := commands.RegisterGraphCommands(commandBus, graphs); err != nil {
		return nil, err
	}
	return commandBus, nil
}

// ProvideQueryBus creates the query bus with every graph query registered
func ProvideQueryBus(
	graphs *services.GraphService,
	collector *observability.Collector,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(querybus.MetricsMiddleware(collector))
	if err := handlers.NewGraphQueryHandler(graphs, logger).Register(queryBus); err != nil {
		return nil, err
	}
	return queryBus, nil
}

// ProvideJWTValidator creates the token validator. Returns nil when auth is off.
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if !cfg.EnableAuth {
		return nil, nil
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  []string{auth.DefaultAudience},
	})
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	graphs *services.GraphService,
	resilient *metadata.ResilientProvider,
	validator *auth.JWTValidator,
	collector *observability.Collector,
	logger *zap.Logger,
) *rest.Router {
	options := rest.RouterOptions{
		DefaultOptions: cfg.BuildOptions(),
		Validator:      validator,
		CurrentVault:   graphs.CurrentVault,
		Readiness: map[string]rest.ReadinessCheck{
			"metadata": func(context.Context) error {
				if resilient.State() == gobreaker.StateOpen {
					return fmt.Errorf("metadata circuit breaker is open")
				}
				return nil
			},
		},
	}
	if cfg.EnableCORS {
		options.AllowedOrigins = cfg.AllowedOrigins
	}
	if cfg.EnableMetrics {
		options.Metrics = collector
		options.Registry = collector.Registry()
	}

	return rest.NewRouter(commandBus, queryBus, options, logger)
}

// ProvideWatcher creates the metadata directory watcher. Returns nil unless
// file metadata is watched.
func ProvideWatcher(
	cfg *config.Config,
	graphs *services.GraphService,
	logger *zap.Logger,
) *metadata.Watcher {
	if !cfg.WatchMetadata || cfg.MetadataSource != config.MetadataSourceFile {
		return nil
	}
	return metadata.NewWatcher(cfg.MetadataDir, graphs, logger)
}
