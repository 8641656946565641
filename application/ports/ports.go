package ports

import (
	"context"
	"time"

	"vaultgraph/domain/core/aggregates"
	"vaultgraph/domain/core/entities"
	"vaultgraph/domain/events"
)

// MetadataProvider supplies the per-document metadata of a vault.
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type MetadataProvider interface {
	// GetMetadata returns every document record of the vault.
	// An unknown vault may return an empty slice or an error.
	GetMetadata(ctx context.Context, vaultID string) ([]entities.DocumentRecord, error)
}

// MetadataProviderFunc is an adapter to allow functions to be used as providers
type MetadataProviderFunc func(ctx context.Context, vaultID string) ([]entities.DocumentRecord, error)

// GetMetadata implements MetadataProvider
func (f MetadataProviderFunc) GetMetadata(ctx context.Context, vaultID string) ([]entities.DocumentRecord, error) {
	return f(ctx, vaultID)
}

// GraphCache memoizes built graph snapshots. Keys start with the vault id
// followed by ':' so a vault's entries can be dropped together.
type GraphCache interface {
	// Get retrieves a snapshot from cache
	Get(ctx context.Context, key string) (*aggregates.Graph, bool)

	// Set stores a snapshot in cache
	Set(ctx context.Context, key string, graph *aggregates.Graph) error

	// Delete removes a snapshot from cache
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every snapshot whose key starts with prefix
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// Clear removes all snapshots
	Clear(ctx context.Context) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// GraphMetrics records graph engine activity
type GraphMetrics interface {
	RecordBuild(vaultID string, duration time.Duration, nodes, edges int, err error)
	RecordCacheHit()
	RecordCacheMiss()
	RecordFallback(reason string)
}
