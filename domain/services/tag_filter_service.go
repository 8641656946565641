package services

import (
	"vaultgraph/domain/core/aggregates"
	"vaultgraph/domain/core/entities"
	"vaultgraph/domain/core/valueobjects"
)

// TagFilterService extracts the neighbourhood of a single tag
type TagFilterService struct{}

// NewTagFilterService creates a new tag filter service
func NewTagFilterService() *TagFilterService {
	return &TagFilterService{}
}

// ByTag returns the tag node, every node directly connected to it, the edges
// touching the tag, and the edges joining two of the collected file nodes.
// The tag may be given with or without its leading '#'.
func (s *TagFilterService) ByTag(graph *aggregates.Graph, tag string) *aggregates.Graph {
	label := valueobjects.TagLabel(tag)
	if label == "" {
		return aggregates.Empty()
	}

	tagNode, ok := s.findTag(graph, label)
	if !ok {
		return aggregates.Empty()
	}

	members := map[string]bool{tagNode.ID: true}
	for _, edge := range graph.IncidentEdges(tagNode.ID) {
		members[edge.Other(tagNode.ID)] = true
	}

	mask := make([]bool, graph.EdgeCount())
	seenPairs := make(map[string]bool)
	for i := 0; i < graph.EdgeCount(); i++ {
		edge := graph.EdgeAt(i)
		touchesTag := edge.Touches(tagNode.ID)
		joinsFiles := members[edge.From] && members[edge.To] &&
			s.isFile(graph, edge.From) && s.isFile(graph, edge.To)
		if !touchesTag && !joinsFiles {
			continue
		}
		if key := edge.PairKey(); !seenPairs[key] {
			seenPairs[key] = true
			mask[i] = true
		}
	}

	return subgraph(graph, members, mask)
}

func (s *TagFilterService) findTag(graph *aggregates.Graph, label string) (entities.Node, bool) {
	for i := 0; i < graph.NodeCount(); i++ {
		node := graph.NodeAt(i)
		if node.IsTag() && node.Label == label {
			return node, true
		}
	}
	return entities.Node{}, false
}

func (s *TagFilterService) isFile(graph *aggregates.Graph, id string) bool {
	node, ok := graph.Node(id)
	return ok && node.IsFile()
}
