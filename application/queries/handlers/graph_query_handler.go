package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"vaultgraph/application/queries"
	"vaultgraph/application/queries/bus"
	"vaultgraph/domain/core/aggregates"
	"vaultgraph/domain/core/entities"
	domainservices "vaultgraph/domain/services"
	pkgerrors "vaultgraph/pkg/errors"
)

// GraphReader is the read side of the graph engine
type GraphReader interface {
	CurrentVault() string
	GetGlobalGraph(ctx context.Context, opts domainservices.BuildOptions) (*aggregates.Graph, error)
	GetLocalGraph(ctx context.Context, identifier string, depth int, opts domainservices.BuildOptions) (*aggregates.Graph, error)
	FilterByTag(ctx context.Context, tag string, opts domainservices.BuildOptions) (*aggregates.Graph, error)
	GetGraphStats(ctx context.Context) (domainservices.GraphStats, error)
	FindNode(ctx context.Context, identifier string) (*entities.Node, error)
	Neighbors(ctx context.Context, nodeID string, depth int) ([]entities.Node, error)
	ShortestPath(ctx context.Context, fromID, toID string) ([]entities.Node, error)
	MostConnected(ctx context.Context, limit int) ([]entities.Node, error)
	Orphans(ctx context.Context) ([]entities.Node, error)
	ConnectivityOf(ctx context.Context, nodeID string) (*domainservices.Connectivity, error)
}

// GraphQueryHandler answers every graph query against the engine
type GraphQueryHandler struct {
	graphs GraphReader
	logger *zap.Logger
}

// NewGraphQueryHandler creates a new graph query handler
func NewGraphQueryHandler(graphs GraphReader, logger *zap.Logger) *GraphQueryHandler {
	return &GraphQueryHandler{
		graphs: graphs,
		logger: logger,
	}
}

// Register binds every graph query type on the bus
func (h *GraphQueryHandler) Register(b *bus.QueryBus) error {
	registrations := []struct {
		query   bus.Query
		handler bus.QueryHandlerFunc
	}{
		{queries.GetGlobalGraphQuery{}, h.handleGlobalGraph},
		{queries.GetLocalGraphQuery{}, h.handleLocalGraph},
		{queries.FilterByTagQuery{}, h.handleFilterByTag},
		{queries.GetGraphStatsQuery{}, h.handleStats},
		{queries.FindNodeQuery{}, h.handleFindNode},
		{queries.GetNeighborsQuery{}, h.handleNeighbors},
		{queries.FindPathQuery{}, h.handleFindPath},
		{queries.GetHubsQuery{}, h.handleHubs},
		{queries.GetOrphansQuery{}, h.handleOrphans},
		{queries.GetConnectivityQuery{}, h.handleConnectivity},
		{queries.GetCurrentVaultQuery{}, h.handleCurrentVault},
	}

	for _, r := range registrations {
		if err := b.Register(r.query, r.handler); err != nil {
			return fmt.Errorf("register %T: %w", r.query, err)
		}
	}
	return nil
}

func (h *GraphQueryHandler) handleGlobalGraph(ctx context.Context, q bus.Query) (interface{}, error) {
	query := q.(queries.GetGlobalGraphQuery)
	return h.graphs.GetGlobalGraph(ctx, query.Options)
}

func (h *GraphQueryHandler) handleLocalGraph(ctx context.Context, q bus.Query) (interface{}, error) {
	query := q.(queries.GetLocalGraphQuery)
	graph, err := h.graphs.GetLocalGraph(ctx, query.Identifier, query.Depth, query.Options)
	if err != nil {
		return nil, err
	}
	if graph.IsEmpty() {
		h.logger.Debug("Local graph center not found",
			zap.String("identifier", query.Identifier),
			zap.String("vault", h.graphs.CurrentVault()),
		)
	}
	return graph, nil
}

func (h *GraphQueryHandler) handleFilterByTag(ctx context.Context, q bus.Query) (interface{}, error) {
	query := q.(queries.FilterByTagQuery)
	return h.graphs.FilterByTag(ctx, query.Tag, query.Options)
}

func (h *GraphQueryHandler) handleStats(ctx context.Context, _ bus.Query) (interface{}, error) {
	return h.graphs.GetGraphStats(ctx)
}

func (h *GraphQueryHandler) handleFindNode(ctx context.Context, q bus.Query) (interface{}, error) {
	query := q.(queries.FindNodeQuery)
	node, err := h.graphs.FindNode(ctx, query.Identifier)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, pkgerrors.NewNotFoundError("node").WithDetails(map[string]interface{}{
			"identifier": query.Identifier,
		})
	}
	return node, nil
}

func (h *GraphQueryHandler) handleNeighbors(ctx context.Context, q bus.Query) (interface{}, error) {
	query := q.(queries.GetNeighborsQuery)
	nodes, err := h.graphs.Neighbors(ctx, query.NodeID, query.Depth)
	if err != nil {
		return nil, err
	}
	return queries.NewNodeListResult(nodes), nil
}

func (h *GraphQueryHandler) handleFindPath(ctx context.Context, q bus.Query) (interface{}, error) {
	query := q.(queries.FindPathQuery)
	path, err := h.graphs.ShortestPath(ctx, query.FromID, query.ToID)
	if err != nil {
		return nil, err
	}
	return queries.NewPathResult(path), nil
}

func (h *GraphQueryHandler) handleHubs(ctx context.Context, q bus.Query) (interface{}, error) {
	query := q.(queries.GetHubsQuery)
	nodes, err := h.graphs.MostConnected(ctx, query.Limit)
	if err != nil {
		return nil, err
	}
	return queries.NewNodeListResult(nodes), nil
}

func (h *GraphQueryHandler) handleOrphans(ctx context.Context, _ bus.Query) (interface{}, error) {
	nodes, err := h.graphs.Orphans(ctx)
	if err != nil {
		return nil, err
	}
	return queries.NewNodeListResult(nodes), nil
}

func (h *GraphQueryHandler) handleConnectivity(ctx context.Context, q bus.Query) (interface{}, error) {
	query := q.(queries.GetConnectivityQuery)
	report, err := h.graphs.ConnectivityOf(ctx, query.NodeID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, pkgerrors.NewNotFoundError("node").WithDetails(map[string]interface{}{
			"nodeId": query.NodeID,
		})
	}
	return report, nil
}

func (h *GraphQueryHandler) handleCurrentVault(_ context.Context, _ bus.Query) (interface{}, error) {
	return queries.VaultResult{VaultID: h.graphs.CurrentVault()}, nil
}
