package services

import (
	"vaultgraph/domain/core/aggregates"
	"vaultgraph/domain/core/entities"
)

// expansion is the result of a depth-bounded breadth-first walk
type expansion struct {
	order    []string        // visited node ids in discovery order, origin first
	visited  map[string]bool // membership of order
	recorded []bool          // recorded[i] marks graph edge i as part of the result
}

// expand walks depth levels out from originID over the undirected adjacency.
// At each level every edge touching the frontier, scanned in graph order, is
// recorded and its unvisited endpoint joins the next frontier. When depth > 0
// every remaining edge between two visited nodes is recorded as well, so the
// result is the induced subgraph on the visited set. Edge identity is the
// unordered pair per type.
func expand(g *aggregates.Graph, originID string, depth int) expansion {
	exp := expansion{
		order:    []string{originID},
		visited:  map[string]bool{originID: true},
		recorded: make([]bool, g.EdgeCount()),
	}
	seenPairs := make(map[string]bool)
	record := func(i int, edge entities.Edge) {
		key := edge.PairKey()
		if seenPairs[key] {
			return
		}
		seenPairs[key] = true
		exp.recorded[i] = true
	}

	frontier := map[string]bool{originID: true}
	for level := 0; level < depth && len(frontier) > 0; level++ {
		next := make(map[string]bool)
		for i := 0; i < g.EdgeCount(); i++ {
			edge := g.EdgeAt(i)
			if !frontier[edge.From] && !frontier[edge.To] {
				continue
			}
			for _, endpoint := range [2]string{edge.From, edge.To} {
				if !exp.visited[endpoint] {
					exp.visited[endpoint] = true
					exp.order = append(exp.order, endpoint)
					next[endpoint] = true
				}
			}
			record(i, edge)
		}
		frontier = next
	}

	if depth > 0 {
		for i := 0; i < g.EdgeCount(); i++ {
			edge := g.EdgeAt(i)
			if exp.visited[edge.From] && exp.visited[edge.To] {
				record(i, edge)
			}
		}
	}

	return exp
}

// subgraph materialises a graph from a node membership set and an edge mask.
// Nodes and edges keep source order; nodes keep their global size.
func subgraph(g *aggregates.Graph, members map[string]bool, edgeMask []bool) *aggregates.Graph {
	nodes := make([]entities.Node, 0, len(members))
	for i := 0; i < g.NodeCount(); i++ {
		node := g.NodeAt(i)
		if members[node.ID] {
			nodes = append(nodes, node)
		}
	}

	edges := make([]entities.Edge, 0)
	for i, keep := range edgeMask {
		if keep {
			edges = append(edges, g.EdgeAt(i))
		}
	}

	return aggregates.NewGraph(nodes, edges)
}
