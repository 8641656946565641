package services

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"vaultgraph/domain/core/aggregates"
	"vaultgraph/domain/core/entities"
	"vaultgraph/domain/core/valueobjects"
	pkgerrors "vaultgraph/pkg/errors"
)

// GraphAnalyticsService answers structural questions about one graph snapshot.
// Node ids passed in must come from the same snapshot; use FindNode to
// re-resolve a stable title or label after a rebuild.
type GraphAnalyticsService struct{}

// NewGraphAnalyticsService creates a new graph analytics service
func NewGraphAnalyticsService() *GraphAnalyticsService {
	return &GraphAnalyticsService{}
}

// Connectivity describes how one node is wired into the graph.
// In/out degrees follow the stored discovery direction of each edge even
// though edge existence is deduplicated on the unordered pair.
type Connectivity struct {
	InDegree       int      `json:"inDegree"`
	OutDegree      int      `json:"outDegree"`
	TotalDegree    int      `json:"totalDegree"`
	ConnectedTags  []string `json:"connectedTags"`
	ConnectedFiles []string `json:"connectedFiles"`
}

// GraphStats summarises a graph
type GraphStats struct {
	TotalNodes         int     `json:"totalNodes"`
	TotalEdges         int     `json:"totalEdges"`
	TotalTags          int     `json:"totalTags"`
	OrphanedNodes      int     `json:"orphanedNodes"`
	AverageConnections float64 `json:"averageConnections"`
}

// FindNode resolves an identifier by id, then label, then raw title, then
// extension-stripped title. The first match wins; nil when nothing matches.
func (s *GraphAnalyticsService) FindNode(graph *aggregates.Graph, identifier string) *entities.Node {
	if identifier == "" {
		return nil
	}
	if node, ok := graph.Node(identifier); ok {
		return &node
	}

	stripped := valueobjects.StripExtension(identifier)
	strategies := []func(entities.Node) bool{
		func(n entities.Node) bool { return n.Label == identifier },
		func(n entities.Node) bool { return n.Title == identifier },
		func(n entities.Node) bool { return n.Title == stripped },
	}
	for _, match := range strategies {
		for i := 0; i < graph.NodeCount(); i++ {
			if node := graph.NodeAt(i); match(node) {
				return &node
			}
		}
	}

	return nil
}

// Neighbors returns every node within depth hops of nodeID, nearest first,
// excluding the node itself
func (s *GraphAnalyticsService) Neighbors(graph *aggregates.Graph, nodeID string, depth int) ([]entities.Node, error) {
	if depth < 0 {
		return nil, pkgerrors.NewValidationErrorf("depth must be >= 0, got %d", depth)
	}
	if !graph.HasNode(nodeID) {
		return []entities.Node{}, nil
	}

	exp := expand(graph, nodeID, depth)
	result := make([]entities.Node, 0, len(exp.order)-1)
	for _, id := range exp.order[1:] {
		node, _ := graph.Node(id)
		result = append(result, node)
	}

	return result, nil
}

// ShortestPath finds an unweighted shortest path over the undirected
// adjacency. The same node yields a one-element path; unknown or unreachable
// nodes yield an empty path.
func (s *GraphAnalyticsService) ShortestPath(graph *aggregates.Graph, fromID, toID string) []entities.Node {
	start, ok := graph.Node(fromID)
	if !ok || !graph.HasNode(toID) {
		return []entities.Node{}
	}
	if fromID == toID {
		return []entities.Node{start}
	}

	// BFS implementation
	parent := map[string]string{fromID: ""}
	queue := []string{fromID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edge := range graph.IncidentEdges(current) {
			next := edge.Other(current)
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = current
			if next == toID {
				return s.reconstructPath(graph, fromID, toID, parent)
			}
			queue = append(queue, next)
		}
	}

	return []entities.Node{}
}

// MostConnected returns up to limit nodes ordered by descending degree,
// ties broken by graph order
func (s *GraphAnalyticsService) MostConnected(graph *aggregates.Graph, limit int) ([]entities.Node, error) {
	if limit < 0 {
		return nil, pkgerrors.NewValidationErrorf("limit must be >= 0, got %d", limit)
	}

	nodes := graph.Nodes()
	sort.SliceStable(nodes, func(i, j int) bool {
		return graph.Degree(nodes[i].ID) > graph.Degree(nodes[j].ID)
	})

	if limit < len(nodes) {
		nodes = nodes[:limit]
	}
	return nodes, nil
}

// Orphans returns the nodes no edge touches
func (s *GraphAnalyticsService) Orphans(graph *aggregates.Graph) []entities.Node {
	orphaned := []entities.Node{}
	for i := 0; i < graph.NodeCount(); i++ {
		node := graph.NodeAt(i)
		if graph.Degree(node.ID) == 0 {
			orphaned = append(orphaned, node)
		}
	}
	return orphaned
}

// ConnectivityOf reports degrees and neighbour labels of a node, or nil when
// the node is not in the graph
func (s *GraphAnalyticsService) ConnectivityOf(graph *aggregates.Graph, nodeID string) *Connectivity {
	if !graph.HasNode(nodeID) {
		return nil
	}

	report := &Connectivity{
		ConnectedTags:  []string{},
		ConnectedFiles: []string{},
	}
	seenTags := mapset.NewThreadUnsafeSet[string]()
	seenFiles := mapset.NewThreadUnsafeSet[string]()

	for _, edge := range graph.IncidentEdges(nodeID) {
		if edge.To == nodeID {
			report.InDegree++
		}
		if edge.From == nodeID {
			report.OutDegree++
		}

		neighbor, ok := graph.Node(edge.Other(nodeID))
		if !ok {
			continue
		}
		switch neighbor.Type {
		case entities.NodeTypeTag:
			if seenTags.Add(neighbor.Label) {
				report.ConnectedTags = append(report.ConnectedTags, neighbor.Label)
			}
		case entities.NodeTypeFile:
			if seenFiles.Add(neighbor.Label) {
				report.ConnectedFiles = append(report.ConnectedFiles, neighbor.Label)
			}
		}
	}
	report.TotalDegree = report.InDegree + report.OutDegree

	return report
}

// Stats summarises node, edge, tag and orphan counts
func (s *GraphAnalyticsService) Stats(graph *aggregates.Graph) GraphStats {
	stats := GraphStats{
		TotalNodes: graph.NodeCount(),
		TotalEdges: graph.EdgeCount(),
	}
	for i := 0; i < graph.NodeCount(); i++ {
		node := graph.NodeAt(i)
		if node.IsTag() {
			stats.TotalTags++
		}
		if graph.Degree(node.ID) == 0 {
			stats.OrphanedNodes++
		}
	}
	if stats.TotalNodes > 0 {
		stats.AverageConnections = 2 * float64(stats.TotalEdges) / float64(stats.TotalNodes)
	}
	return stats
}

// Private helper methods

func (s *GraphAnalyticsService) reconstructPath(
	graph *aggregates.Graph,
	fromID, toID string,
	parent map[string]string,
) []entities.Node {
	var reversed []entities.Node
	for id := toID; ; id = parent[id] {
		node, _ := graph.Node(id)
		reversed = append(reversed, node)
		if id == fromID {
			break
		}
	}

	path := make([]entities.Node, len(reversed))
	for i, node := range reversed {
		path[len(reversed)-1-i] = node
	}
	return path
}
