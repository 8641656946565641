package metadata

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"vaultgraph/application/ports"
	"vaultgraph/domain/core/entities"
	pkgerrors "vaultgraph/pkg/errors"
)

// BreakerConfig holds configuration for the provider circuit breaker
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32 // consecutive failures before opening
}

// DefaultBreakerConfig returns the breaker used when nothing is configured
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "metadata-provider",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// ResilientProvider wraps a MetadataProvider with a circuit breaker. While
// the breaker is open calls fail fast with an unavailable error.
type ResilientProvider struct {
	next    ports.MetadataProvider
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewResilientProvider decorates next with a circuit breaker
func NewResilientProvider(next ports.MetadataProvider, config BreakerConfig, logger *zap.Logger) *ResilientProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := config.FailureThreshold
	if threshold == 0 {
		threshold = 1
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// A cancelled caller says nothing about the provider's health
			return err == nil || errors.Is(err, context.Canceled) || pkgerrors.IsValidation(err)
		},
	})

	return &ResilientProvider{next: next, breaker: breaker, logger: logger}
}

// GetMetadata implements ports.MetadataProvider
func (p *ResilientProvider) GetMetadata(ctx context.Context, vaultID string) ([]entities.DocumentRecord, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.next.GetMetadata(ctx, vaultID)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			p.logger.Debug("Metadata provider call rejected by circuit breaker",
				zap.String("vault", vaultID),
				zap.String("state", p.breaker.State().String()),
			)
			return nil, pkgerrors.NewMetadataUnavailableError(vaultID, err)
		}
		return nil, err
	}

	records, _ := result.([]entities.DocumentRecord)
	return records, nil
}

// State reports the breaker state, e.g. for readiness checks
func (p *ResilientProvider) State() gobreaker.State {
	return p.breaker.State()
}
