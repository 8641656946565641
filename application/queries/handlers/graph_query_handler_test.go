package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vaultgraph/application/ports"
	"vaultgraph/application/queries"
	"vaultgraph/application/queries/bus"
	"vaultgraph/application/services"
	"vaultgraph/domain/core/aggregates"
	"vaultgraph/domain/core/entities"
	domainservices "vaultgraph/domain/services"
	pkgerrors "vaultgraph/pkg/errors"
)

func newTestBus(t *testing.T) *bus.QueryBus {
	t.Helper()

	provider := ports.MetadataProviderFunc(func(ctx context.Context, vaultID string) ([]entities.DocumentRecord, error) {
		return []entities.DocumentRecord{
			{Path: "A.md", Tags: []string{"x"}, Links: []entities.LinkRef{{Path: "B.md"}}},
			{Path: "B.md"},
			{Path: "Lonely.md"},
		}, nil
	})
	graphs := services.NewGraphService(provider, nil, nil, nil, zap.NewNop(), services.GraphServiceConfig{
		DefaultVault:   "notes",
		DefaultOptions: domainservices.DefaultBuildOptions(),
	})

	b := bus.NewQueryBus()
	require.NoError(t, NewGraphQueryHandler(graphs, zap.NewNop()).Register(b))
	return b
}

func TestGraphQueryHandler_Graphs(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()
	opts := domainservices.DefaultBuildOptions()

	result, err := b.Ask(ctx, queries.GetGlobalGraphQuery{Options: opts})
	require.NoError(t, err)
	assert.Equal(t, 4, result.(*aggregates.Graph).NodeCount())

	result, err = b.Ask(ctx, queries.GetLocalGraphQuery{Identifier: "B", Depth: 1, Options: opts})
	require.NoError(t, err)
	assert.Equal(t, 2, result.(*aggregates.Graph).NodeCount())

	result, err = b.Ask(ctx, queries.FilterByTagQuery{Tag: "x", Options: opts})
	require.NoError(t, err)
	assert.Equal(t, 2, result.(*aggregates.Graph).NodeCount())

	result, err = b.Ask(ctx, queries.GetGraphStatsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.(domainservices.GraphStats).OrphanedNodes)
}

func TestGraphQueryHandler_Analytics(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()

	result, err := b.Ask(ctx, queries.FindNodeQuery{Identifier: "A.md"})
	require.NoError(t, err)
	a := result.(*entities.Node)
	assert.Equal(t, "A", a.Title)

	result, err = b.Ask(ctx, queries.GetNeighborsQuery{NodeID: a.ID, Depth: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, result.(queries.NodeListResult).Count)

	result, err = b.Ask(ctx, queries.GetHubsQuery{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, "A", result.(queries.NodeListResult).Nodes[0].Title)

	result, err = b.Ask(ctx, queries.GetOrphansQuery{})
	require.NoError(t, err)
	assert.Equal(t, "Lonely", result.(queries.NodeListResult).Nodes[0].Title)

	result, err = b.Ask(ctx, queries.GetConnectivityQuery{NodeID: a.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, result.(*domainservices.Connectivity).OutDegree)

	lonely, err := b.Ask(ctx, queries.FindNodeQuery{Identifier: "Lonely"})
	require.NoError(t, err)
	result, err = b.Ask(ctx, queries.FindPathQuery{FromID: a.ID, ToID: lonely.(*entities.Node).ID})
	require.NoError(t, err)
	assert.False(t, result.(queries.PathResult).Found)
	assert.Empty(t, result.(queries.PathResult).Path)

	result, err = b.Ask(ctx, queries.GetCurrentVaultQuery{})
	require.NoError(t, err)
	assert.Equal(t, queries.VaultResult{VaultID: "notes"}, result)
}

func TestGraphQueryHandler_Errors(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		query    bus.Query
		notFound bool
	}{
		{name: "negative depth", query: queries.GetLocalGraphQuery{Identifier: "A", Depth: -1}},
		{name: "missing identifier", query: queries.FindNodeQuery{}},
		{name: "negative limit", query: queries.GetHubsQuery{Limit: -3}},
		{name: "negative max nodes", query: queries.GetGlobalGraphQuery{Options: domainservices.BuildOptions{MaxNodes: -1}}},
		{name: "unknown node", query: queries.FindNodeQuery{Identifier: "Nope"}, notFound: true},
		{name: "unknown connectivity", query: queries.GetConnectivityQuery{NodeID: "99"}, notFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Ask(ctx, tt.query)

			require.Error(t, err)
			assert.Equal(t, tt.notFound, pkgerrors.IsNotFound(err))
			assert.Equal(t, !tt.notFound, pkgerrors.IsValidation(err))
		})
	}
}
