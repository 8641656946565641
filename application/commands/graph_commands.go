package commands

import (
	"context"
	"fmt"
	"strings"

	"vaultgraph/application/commands/bus"
	pkgerrors "vaultgraph/pkg/errors"
)

// RefreshGraphCommand discards the cached graphs of the current vault
type RefreshGraphCommand struct{}

// Validate validates the command
func (c RefreshGraphCommand) Validate() error { return nil }

// SwitchVaultCommand points the engine at another vault
type SwitchVaultCommand struct {
	VaultID string `json:"vaultId"`
}

// Validate validates the command
func (c SwitchVaultCommand) Validate() error {
	if strings.TrimSpace(c.VaultID) == "" {
		return pkgerrors.NewValidationError("vault id is required")
	}
	return nil
}

// GraphWriter is the state-changing side of the graph engine
type GraphWriter interface {
	RefreshCache(ctx context.Context) error
	SwitchVault(ctx context.Context, vaultID string) error
}

// RegisterGraphCommands binds the graph commands on the bus
func RegisterGraphCommands(b *bus.CommandBus, graphs GraphWriter) error {
	if err := b.Register(RefreshGraphCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, _ bus.Command) error {
		return graphs.RefreshCache(ctx)
	})); err != nil {
		return fmt.Errorf("register RefreshGraphCommand: %w", err)
	}

	if err := b.Register(SwitchVaultCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		return graphs.SwitchVault(ctx, cmd.(SwitchVaultCommand).VaultID)
	})); err != nil {
		return fmt.Errorf("register SwitchVaultCommand: %w", err)
	}

	return nil
}
