package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultgraph/domain/core/aggregates"
	"vaultgraph/domain/core/entities"
	pkgerrors "vaultgraph/pkg/errors"
)

func TestAnalytics_FindNode(t *testing.T) {
	g := buildDefault(twoNoteVault())
	svc := NewGraphAnalyticsService()

	tests := []struct {
		name       string
		identifier string
		want       string
	}{
		{name: "by id", identifier: "2", want: "B"},
		{name: "by label", identifier: "#x", want: "#x"},
		{name: "by raw title", identifier: "A", want: "A"},
		{name: "by stripped title", identifier: "B.md", want: "B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := svc.FindNode(g, tt.identifier)

			require.NotNil(t, node)
			assert.Equal(t, tt.want, node.Title)
		})
	}

	assert.Nil(t, svc.FindNode(g, "Missing"))
	assert.Nil(t, svc.FindNode(g, ""))
}

func TestAnalytics_Neighbors(t *testing.T) {
	g := buildDefault(chainVault())
	svc := NewGraphAnalyticsService()
	b := nodeByTitle(g, "B")

	oneHop, err := svc.Neighbors(g, b.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, titles(oneHop))

	twoHops, err := svc.Neighbors(g, b.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "D"}, titles(twoHops))

	none, err := svc.Neighbors(g, b.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	unknown, err := svc.Neighbors(g, "99", 1)
	require.NoError(t, err)
	assert.Empty(t, unknown)

	_, err = svc.Neighbors(g, b.ID, -1)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestAnalytics_ShortestPath(t *testing.T) {
	g := buildDefault(append(chainVault(), entities.DocumentRecord{Path: "F.md", Links: links("A.md", "D.md")}))
	svc := NewGraphAnalyticsService()
	id := func(title string) string { return nodeByTitle(g, title).ID }

	tests := []struct {
		name     string
		from, to string
		want     []string
	}{
		{name: "adjacent", from: "A", to: "B", want: []string{"A", "B"}},
		{name: "shortcut through F", from: "A", to: "D", want: []string{"A", "F", "D"}},
		{name: "against link direction", from: "C", to: "A", want: []string{"C", "B", "A"}},
		{name: "same node", from: "C", to: "C", want: []string{"C"}},
		{name: "unreachable", from: "A", to: "E", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := svc.ShortestPath(g, id(tt.from), id(tt.to))
			assert.Equal(t, tt.want, titles(path))
		})
	}

	assert.Empty(t, svc.ShortestPath(g, "99", id("A")))
}

func TestAnalytics_ShortestPathIsMinimal(t *testing.T) {
	g := buildDefault(taggedVault())
	svc := NewGraphAnalyticsService()

	for _, from := range g.Nodes() {
		for _, to := range g.Nodes() {
			path := svc.ShortestPath(g, from.ID, to.ID)
			require.NotEmpty(t, path)
			if from.ID == to.ID {
				assert.Len(t, path, 1)
				continue
			}

			// one hop fewer than the path must not reach the target
			reached, err := svc.Neighbors(g, from.ID, len(path)-2)
			require.NoError(t, err)
			assert.NotContains(t, titles(reached), to.Title)
		}
	}
}

func TestAnalytics_MostConnected(t *testing.T) {
	svc := NewGraphAnalyticsService()

	top, err := svc.MostConnected(buildDefault(twoNoteVault()), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, titles(top))

	g := buildDefault(taggedVault())
	all, err := svc.MostConnected(g, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "#x", "#y", "C"}, titles(all))

	zero, err := svc.MostConnected(g, 0)
	require.NoError(t, err)
	assert.Empty(t, zero)

	_, err = svc.MostConnected(g, -1)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestAnalytics_Orphans(t *testing.T) {
	svc := NewGraphAnalyticsService()

	assert.Equal(t, []string{"E"}, titles(svc.Orphans(buildDefault(chainVault()))))
	assert.Empty(t, svc.Orphans(buildDefault(twoNoteVault())))
}

func TestAnalytics_ConnectivityOf(t *testing.T) {
	g := buildDefault(twoNoteVault())
	svc := NewGraphAnalyticsService()

	a := svc.ConnectivityOf(g, nodeByTitle(g, "A").ID)
	require.NotNil(t, a)
	assert.Equal(t, Connectivity{
		InDegree:       0,
		OutDegree:      2,
		TotalDegree:    2,
		ConnectedTags:  []string{"#x"},
		ConnectedFiles: []string{"B"},
	}, *a)

	// B only ever appears as a link target
	b := svc.ConnectivityOf(g, nodeByTitle(g, "B").ID)
	require.NotNil(t, b)
	assert.Equal(t, 1, b.InDegree)
	assert.Equal(t, 0, b.OutDegree)
	assert.Equal(t, []string{"A"}, b.ConnectedFiles)
	assert.Empty(t, b.ConnectedTags)

	assert.Nil(t, svc.ConnectivityOf(g, "99"))
}

func TestAnalytics_ConnectivitySelfLoop(t *testing.T) {
	g := buildDefault([]entities.DocumentRecord{{Path: "A.md", Links: links("A.md")}})

	report := NewGraphAnalyticsService().ConnectivityOf(g, "0")

	require.NotNil(t, report)
	assert.Equal(t, 1, report.InDegree)
	assert.Equal(t, 1, report.OutDegree)
	assert.Equal(t, []string{"A"}, report.ConnectedFiles)
}

func TestAnalytics_Stats(t *testing.T) {
	svc := NewGraphAnalyticsService()

	stats := svc.Stats(buildDefault(twoNoteVault()))
	assert.Equal(t, 3, stats.TotalNodes)
	assert.Equal(t, 2, stats.TotalEdges)
	assert.Equal(t, 1, stats.TotalTags)
	assert.Equal(t, 0, stats.OrphanedNodes)
	assert.InDelta(t, 4.0/3.0, stats.AverageConnections, 1e-9)

	assert.Equal(t, GraphStats{}, svc.Stats(aggregates.Empty()))
}
