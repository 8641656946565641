package bus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	pkgerrors "vaultgraph/pkg/errors"
)

var (
	ErrNoHandler        = errors.New("no command handler registered")
	ErrDuplicateHandler = errors.New("command handler already registered")
)

// Command changes engine state: a cache refresh or a vault switch
type Command interface {
	Validate() error
}

// CommandHandler executes one command type
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) error
}

// CommandHandlerFunc adapts a function to CommandHandler
type CommandHandlerFunc func(ctx context.Context, cmd Command) error

// Handle implements CommandHandler
func (f CommandHandlerFunc) Handle(ctx context.Context, cmd Command) error {
	return f(ctx, cmd)
}

// Middleware decorates a command handler
type Middleware func(next CommandHandler) CommandHandler

// CommandBus routes each command to the handler registered for its concrete type
type CommandBus struct {
	mu       sync.RWMutex
	routes   map[reflect.Type]CommandHandler
	decorate []Middleware
}

// NewCommandBus creates a command bus. The first middleware is the outermost.
func NewCommandBus(middleware ...Middleware) *CommandBus {
	return &CommandBus{
		routes:   make(map[reflect.Type]CommandHandler),
		decorate: middleware,
	}
}

// Register binds handler to the concrete type of cmd
func (b *CommandBus) Register(cmd Command, handler CommandHandler) error {
	key := reflect.TypeOf(cmd)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.routes[key]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, key.Name())
	}

	for i := len(b.decorate) - 1; i >= 0; i-- {
		handler = b.decorate[i](handler)
	}
	b.routes[key] = handler
	return nil
}

// Send validates cmd and runs its handler
func (b *CommandBus) Send(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid %s: %w", Name(cmd), err)
	}

	b.mu.RLock()
	handler, ok := b.routes[reflect.TypeOf(cmd)]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, Name(cmd))
	}

	if err := handler.Handle(ctx, cmd); err != nil {
		return fmt.Errorf("%s: %w", Name(cmd), err)
	}
	return nil
}

// Name is the label a command is logged under
func Name(cmd Command) string {
	return reflect.TypeOf(cmd).Name()
}

// LoggingMiddleware logs every command. Failures the caller caused are
// warnings; everything else is an error.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			start := time.Now()
			err := next.Handle(ctx, cmd)

			fields := []zap.Field{
				zap.String("command", Name(cmd)),
				zap.Duration("duration", time.Since(start)),
			}
			switch {
			case err == nil:
				logger.Info("Command completed", fields...)
			case pkgerrors.HTTPStatusOf(err) < http.StatusInternalServerError:
				logger.Warn("Command rejected", append(fields, zap.Error(err))...)
			default:
				logger.Error("Command failed", append(fields, zap.Error(err))...)
			}
			return err
		})
	}
}
