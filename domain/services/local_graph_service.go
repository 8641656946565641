package services

import (
	"vaultgraph/domain/core/aggregates"
	"vaultgraph/domain/core/entities"
	"vaultgraph/domain/core/valueobjects"
	pkgerrors "vaultgraph/pkg/errors"
)

// LocalGraphService extracts ego-networks around one document
type LocalGraphService struct{}

// NewLocalGraphService creates a new local graph service
func NewLocalGraphService() *LocalGraphService {
	return &LocalGraphService{}
}

// Local returns the induced subgraph within depth hops of the node named by
// identifier. An unknown identifier yields an empty graph; a negative depth is
// a caller error.
func (s *LocalGraphService) Local(graph *aggregates.Graph, identifier string, depth int) (*aggregates.Graph, error) {
	if depth < 0 {
		return nil, pkgerrors.NewValidationErrorf("depth must be >= 0, got %d", depth)
	}

	center, ok := s.ResolveCenter(graph, identifier)
	if !ok {
		return aggregates.Empty(), nil
	}

	exp := expand(graph, center.ID, depth)
	return subgraph(graph, exp.visited, exp.recorded), nil
}

// ResolveCenter finds the node an identifier refers to. Strategies are tried
// in order, each over all nodes in graph order:
//  1. title equals the extension-stripped identifier
//  2. file label equals the bare file name of the identifier
//  3. title equals the raw identifier
//  4. title equals the percent-decoded, extension-stripped identifier
func (s *LocalGraphService) ResolveCenter(graph *aggregates.Graph, identifier string) (entities.Node, bool) {
	if identifier == "" {
		return entities.Node{}, false
	}

	stripped := valueobjects.StripExtension(identifier)
	bare := valueobjects.BareName(identifier)
	decoded := valueobjects.StripExtension(valueobjects.Decode(identifier))

	strategies := []func(entities.Node) bool{
		func(n entities.Node) bool { return n.Title == stripped },
		func(n entities.Node) bool { return n.IsFile() && n.Label == bare },
		func(n entities.Node) bool { return n.Title == identifier },
		func(n entities.Node) bool { return n.Title == decoded },
	}

	for _, match := range strategies {
		for i := 0; i < graph.NodeCount(); i++ {
			if node := graph.NodeAt(i); match(node) {
				return node, true
			}
		}
	}

	return entities.Node{}, false
}
