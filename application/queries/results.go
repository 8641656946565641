package queries

import (
	"vaultgraph/domain/core/entities"
)

// NodeListResult wraps a list of nodes
type NodeListResult struct {
	Nodes []entities.Node `json:"nodes"`
	Count int             `json:"count"`
}

// NewNodeListResult creates a NodeListResult, never with a nil slice
func NewNodeListResult(nodes []entities.Node) NodeListResult {
	if nodes == nil {
		nodes = []entities.Node{}
	}
	return NodeListResult{Nodes: nodes, Count: len(nodes)}
}

// PathResult is the answer to FindPathQuery
type PathResult struct {
	Path   []entities.Node `json:"path"`
	Length int             `json:"length"`
	Found  bool            `json:"found"`
}

// NewPathResult creates a PathResult. Length counts hops.
func NewPathResult(path []entities.Node) PathResult {
	if len(path) == 0 {
		return PathResult{Path: []entities.Node{}}
	}
	return PathResult{Path: path, Length: len(path) - 1, Found: true}
}

// VaultResult names the current vault
type VaultResult struct {
	VaultID string `json:"vaultId"`
}
