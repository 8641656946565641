package aggregates

import (
	"encoding/json"
	"errors"
	"fmt"

	"vaultgraph/domain/core/entities"
)

// Graph is an immutable snapshot of the vault graph.
// It is produced wholesale by a build (or a subgraph extraction) and shared
// between concurrent readers; nothing mutates a Graph after construction.
type Graph struct {
	nodes []entities.Node
	edges []entities.Edge

	// derived indexes, built once in NewGraph
	position map[string]int   // node id -> index in nodes
	incident map[string][]int // node id -> indexes of touching edges, in edge order
}

// NewGraph creates a graph snapshot from ordered nodes and edges.
// The slices are copied; node sizes are kept as given.
func NewGraph(nodes []entities.Node, edges []entities.Edge) *Graph {
	g := &Graph{
		nodes:    make([]entities.Node, len(nodes)),
		edges:    make([]entities.Edge, len(edges)),
		position: make(map[string]int, len(nodes)),
		incident: make(map[string][]int, len(nodes)),
	}
	copy(g.nodes, nodes)
	copy(g.edges, edges)

	for i, node := range g.nodes {
		g.position[node.ID] = i
	}
	for i, edge := range g.edges {
		g.incident[edge.From] = append(g.incident[edge.From], i)
		if !edge.IsSelfLoop() {
			g.incident[edge.To] = append(g.incident[edge.To], i)
		}
	}

	return g
}

// Empty returns a graph with no nodes and no edges
func Empty() *Graph {
	return NewGraph(nil, nil)
}

// Nodes returns all nodes in insertion order
func (g *Graph) Nodes() []entities.Node {
	// Return a copy to maintain immutability
	nodes := make([]entities.Node, len(g.nodes))
	copy(nodes, g.nodes)
	return nodes
}

// Edges returns all edges in insertion order
func (g *Graph) Edges() []entities.Edge {
	edges := make([]entities.Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// IsEmpty reports whether the graph has no nodes
func (g *Graph) IsEmpty() bool {
	return len(g.nodes) == 0
}

// NodeAt returns the node at insertion position i
func (g *Graph) NodeAt(i int) entities.Node {
	return g.nodes[i]
}

// EdgeAt returns the edge at insertion position i
func (g *Graph) EdgeAt(i int) entities.Edge {
	return g.edges[i]
}

// Node retrieves a node by id
func (g *Graph) Node(id string) (entities.Node, bool) {
	i, ok := g.position[id]
	if !ok {
		return entities.Node{}, false
	}
	return g.nodes[i], true
}

// HasNode checks if a node exists in the graph
func (g *Graph) HasNode(id string) bool {
	_, ok := g.position[id]
	return ok
}

// Position returns the insertion index of a node, or -1
func (g *Graph) Position(id string) int {
	if i, ok := g.position[id]; ok {
		return i
	}
	return -1
}

// IncidentEdges returns the edges touching a node, in graph edge order.
// A self-loop appears once.
func (g *Graph) IncidentEdges(id string) []entities.Edge {
	idx := g.incident[id]
	edges := make([]entities.Edge, 0, len(idx))
	for _, i := range idx {
		edges = append(edges, g.edges[i])
	}
	return edges
}

// Degree returns the number of edges touching a node
func (g *Graph) Degree(id string) int {
	return len(g.incident[id])
}

// Validate checks the snapshot invariants
func (g *Graph) Validate() error {
	titles := make(map[string]bool)
	labels := make(map[string]bool)
	for _, node := range g.nodes {
		if !node.Type.IsValid() {
			return fmt.Errorf("node %s has invalid type %q", node.ID, node.Type)
		}
		switch node.Type {
		case entities.NodeTypeFile:
			if titles[node.Title] {
				return fmt.Errorf("duplicate file title %q", node.Title)
			}
			titles[node.Title] = true
		case entities.NodeTypeTag:
			if labels[node.Label] {
				return fmt.Errorf("duplicate tag label %q", node.Label)
			}
			labels[node.Label] = true
		}
	}
	if len(g.position) != len(g.nodes) {
		return errors.New("duplicate node id")
	}

	pairs := make(map[string]bool, len(g.edges))
	for _, edge := range g.edges {
		if !g.HasNode(edge.From) || !g.HasNode(edge.To) {
			return fmt.Errorf("edge %s->%s references a missing node", edge.From, edge.To)
		}
		key := edge.PairKey()
		if pairs[key] {
			return fmt.Errorf("duplicate %s edge between %s and %s", edge.Type, edge.From, edge.To)
		}
		pairs[key] = true
	}

	return nil
}

// ValidateSizes checks that every node's size equals its live degree.
// Only graphs produced by a build satisfy this; subgraphs keep global sizes.
func (g *Graph) ValidateSizes() error {
	for _, node := range g.nodes {
		if node.Size != g.Degree(node.ID) {
			return fmt.Errorf("node %s size %d != degree %d", node.ID, node.Size, g.Degree(node.ID))
		}
	}
	return nil
}

type graphJSON struct {
	Nodes []entities.Node `json:"nodes"`
	Edges []entities.Edge `json:"edges"`
}

// MarshalJSON renders the graph as flat node and edge arrays
func (g *Graph) MarshalJSON() ([]byte, error) {
	out := graphJSON{Nodes: g.nodes, Edges: g.edges}
	if out.Nodes == nil {
		out.Nodes = []entities.Node{}
	}
	if out.Edges == nil {
		out.Edges = []entities.Edge{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a graph from its flat JSON form
func (g *Graph) UnmarshalJSON(data []byte) error {
	var in graphJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*g = *NewGraph(in.Nodes, in.Edges)
	return nil
}
