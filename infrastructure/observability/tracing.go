package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"vaultgraph/application/ports"
	"vaultgraph/domain/core/entities"
)

// TracerProvider owns the SDK provider so the container can flush it on exit
type TracerProvider struct {
	sdk    *sdktrace.TracerProvider
	tracer trace.Tracer
}

// InitTracing ships spans to an OTLP/gRPC collector at endpoint and makes the
// provider the process-wide default.
func InitTracing(ctx context.Context, serviceName, environment, endpoint string) (*TracerProvider, error) {
	client := otlptracegrpc.NewClient(otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	exporter, err := otlptrace.New(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter for %s: %w", endpoint, err)
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(serviceName),
		semconv.DeploymentEnvironment(environment),
	}
	res, err := resource.New(ctx, resource.WithTelemetrySDK(), resource.WithFromEnv(), resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}

	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(sdk)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return &TracerProvider{sdk: sdk, tracer: sdk.Tracer(serviceName)}, nil
}

func (tp *TracerProvider) Shutdown(ctx context.Context) error { return tp.sdk.Shutdown(ctx) }

func (tp *TracerProvider) Tracer() trace.Tracer { return tp.tracer }

// TraceProvider records one span per metadata fetch
func TraceProvider(provider ports.MetadataProvider, tracer trace.Tracer) ports.MetadataProvider {
	return tracedProvider{next: provider, tracer: tracer}
}

type tracedProvider struct {
	next   ports.MetadataProvider
	tracer trace.Tracer
}

func (p tracedProvider) GetMetadata(ctx context.Context, vaultID string) ([]entities.DocumentRecord, error) {
	ctx, span := p.tracer.Start(ctx, "metadata.GetMetadata", trace.WithAttributes(attribute.String("vault.id", vaultID)))
	defer span.End()

	records, err := p.next.GetMetadata(ctx, vaultID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("metadata.records", len(records)))
	return records, nil
}
