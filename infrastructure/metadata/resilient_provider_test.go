package metadata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultgraph/application/ports"
	"vaultgraph/domain/core/entities"
	pkgerrors "vaultgraph/pkg/errors"
)

func TestResilientProvider_OpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	failing := true
	inner := ports.MetadataProviderFunc(func(ctx context.Context, vaultID string) ([]entities.DocumentRecord, error) {
		calls++
		if failing {
			return nil, errors.New("table unreachable")
		}
		return []entities.DocumentRecord{{Path: "A.md"}}, nil
	})

	config := DefaultBreakerConfig()
	config.FailureThreshold = 3
	config.Timeout = time.Hour
	p := NewResilientProvider(inner, config, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := p.GetMetadata(ctx, "notes")
		require.Error(t, err)
		assert.False(t, pkgerrors.IsUnavailable(err), "inner errors pass through unchanged")
	}
	assert.Equal(t, gobreaker.StateOpen, p.State())

	failing = false
	_, err := p.GetMetadata(ctx, "notes")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsUnavailable(err))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, calls)
}

func TestResilientProvider_PassesRecords(t *testing.T) {
	inner := ports.MetadataProviderFunc(func(ctx context.Context, vaultID string) ([]entities.DocumentRecord, error) {
		return []entities.DocumentRecord{{Path: vaultID + ".md"}}, nil
	})
	p := NewResilientProvider(inner, DefaultBreakerConfig(), nil)

	records, err := p.GetMetadata(context.Background(), "notes")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "notes.md", records[0].Path)
	assert.Equal(t, gobreaker.StateClosed, p.State())
}

func TestResilientProvider_IgnoresCallerErrors(t *testing.T) {
	inner := ports.MetadataProviderFunc(func(ctx context.Context, vaultID string) ([]entities.DocumentRecord, error) {
		return nil, context.Canceled
	})
	config := DefaultBreakerConfig()
	config.FailureThreshold = 1
	p := NewResilientProvider(inner, config, nil)

	for i := 0; i < 3; i++ {
		_, err := p.GetMetadata(context.Background(), "notes")
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, p.State())
}
