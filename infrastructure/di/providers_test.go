package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vaultgraph/infrastructure/config"
	"vaultgraph/infrastructure/metadata"
)

func TestProvideLogger(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		level       string
		wantDebug   bool
		wantErr     bool
	}{
		{name: "development debug", environment: "development", level: "debug", wantDebug: true},
		{name: "production info", environment: "production", level: "info"},
		{name: "unknown level", environment: "development", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Environment = tt.environment
			cfg.LogLevel = tt.level

			logger, err := ProvideLogger(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDebug, logger.Core().Enabled(zapcore.DebugLevel))
		})
	}
}

func TestOptionalProvidersAreNilWhenDisabled(t *testing.T) {
	cfg := config.Default()
	logger := zap.NewNop()

	validator, err := ProvideJWTValidator(cfg)
	require.NoError(t, err)
	assert.Nil(t, validator)

	tp, err := ProvideTracing(t.Context(), cfg)
	require.NoError(t, err)
	assert.Nil(t, tp)

	assert.Nil(t, ProvideEventPublisher(cfg, nil, logger))
	assert.Nil(t, ProvideWatcher(cfg, nil, logger))

	cfg.WatchMetadata = true
	cfg.MetadataSource = config.MetadataSourceDynamoDB
	assert.Nil(t, ProvideWatcher(cfg, nil, logger))
}

func TestProvideJWTValidator(t *testing.T) {
	cfg := config.Default()
	cfg.EnableAuth = true
	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"

	validator, err := ProvideJWTValidator(cfg)
	require.NoError(t, err)
	assert.NotNil(t, validator)
}

func TestProvideMetadataProvider_FileSource(t *testing.T) {
	cfg := config.Default()
	cfg.MetadataDir = t.TempDir()

	resilient := ProvideResilientProvider(cfg, nil, zap.NewNop())
	provider := ProvideMetadataProvider(resilient, nil)

	_, isResilient := provider.(*metadata.ResilientProvider)
	assert.True(t, isResilient)

	records, err := provider.GetMetadata(t.Context(), "missing")
	require.NoError(t, err)
	assert.Empty(t, records)
}
