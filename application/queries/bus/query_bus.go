package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

var (
	ErrNoHandler        = errors.New("no query handler registered")
	ErrDuplicateHandler = errors.New("query handler already registered")
)

// Query is a read-only request. Validate rejects malformed queries before
// any handler runs.
type Query interface {
	Validate() error
}

// QueryHandler answers one query type
type QueryHandler interface {
	Handle(ctx context.Context, query Query) (interface{}, error)
}

// QueryHandlerFunc adapts a function to QueryHandler
type QueryHandlerFunc func(ctx context.Context, query Query) (interface{}, error)

// Handle implements QueryHandler
func (f QueryHandlerFunc) Handle(ctx context.Context, query Query) (interface{}, error) {
	return f(ctx, query)
}

// Middleware decorates a query handler
type Middleware func(next QueryHandler) QueryHandler

// QueryBus routes each query to the handler registered for its concrete type
type QueryBus struct {
	mu       sync.RWMutex
	routes   map[reflect.Type]QueryHandler
	decorate []Middleware
}

// NewQueryBus creates a query bus. The first middleware is the outermost.
func NewQueryBus(middleware ...Middleware) *QueryBus {
	return &QueryBus{
		routes:   make(map[reflect.Type]QueryHandler),
		decorate: middleware,
	}
}

// Register binds handler to the concrete type of query
func (b *QueryBus) Register(query Query, handler QueryHandler) error {
	key := reflect.TypeOf(query)

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

// Ask validates query and returns its handler's answer. Handler errors are
// wrapped, so callers should inspect them with errors.As.
func (b *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", Name(query), err)
	}

	b.mu.RLock()
	handler, ok := b.routes[reflect.TypeOf(query)]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, Name(query))
	}

	result, err := handler.Handle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Name(query), err)
	}
	return result, nil
}

// Registered lists the names of every routed query type, sorted
func (b *QueryBus) Registered() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.routes))
	for t := range b.routes {
		names = append(names, t.Name())
	}
	sort.Strings(names)
	return names
}

// Name is the label a query is logged and measured under
func Name(query Query) string {
	return reflect.TypeOf(query).Name()
}

// Metrics receives one observation per answered query
type Metrics interface {
	RecordQuery(queryType string, duration time.Duration, err error)
}

// MetricsMiddleware times every query and records its outcome
func MetricsMiddleware(metrics Metrics) Middleware {
	return func(next QueryHandler) QueryHandler {
		return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
			start := time.Now()
			result, err := next.Handle(ctx, query)
			metrics.RecordQuery(Name(query), time.Since(start), err)
			return result, err
		})
	}
}
