package queries

import (
	domainservices "vaultgraph/domain/services"
	pkgerrors "vaultgraph/pkg/errors"
)

// GetGlobalGraphQuery asks for the full graph of the current vault
type GetGlobalGraphQuery struct {
	Options domainservices.BuildOptions `json:"options"`
}

// Validate validates the query
func (q GetGlobalGraphQuery) Validate() error {
	return validateOptions(q.Options)
}

// GetLocalGraphQuery asks for the ego-network around one document
type GetLocalGraphQuery struct {
	Identifier string                      `json:"identifier"`
	Depth      int                         `json:"depth"`
	Options    domainservices.BuildOptions `json:"options"`
}

// Validate validates the query
func (q GetLocalGraphQuery) Validate() error {
	if q.Identifier == "" {
		return pkgerrors.NewValidationError("identifier is required")
	}
	if q.Depth < 0 {
		return pkgerrors.NewValidationErrorf("depth must be >= 0, got %d", q.Depth)
	}
	return validateOptions(q.Options)
}

// FilterByTagQuery asks for the neighbourhood of one tag
type FilterByTagQuery struct {
	Tag     string                      `json:"tag"`
	Options domainservices.BuildOptions `json:"options"`
}

// Validate validates the query
func (q FilterByTagQuery) Validate() error {
	if q.Tag == "" {
		return pkgerrors.NewValidationError("tag is required")
	}
	return validateOptions(q.Options)
}

// GetGraphStatsQuery asks for the summary of the default graph
type GetGraphStatsQuery struct{}

// Validate validates the query
func (q GetGraphStatsQuery) Validate() error { return nil }

// FindNodeQuery resolves an id, label or title to a node
type FindNodeQuery struct {
	Identifier string `json:"identifier"`
}

// Validate validates the query
func (q FindNodeQuery) Validate() error {
	if q.Identifier == "" {
		return pkgerrors.NewValidationError("identifier is required")
	}
	return nil
}

// GetNeighborsQuery lists nodes within Depth hops of a node
type GetNeighborsQuery struct {
	NodeID string `json:"nodeId"`
	Depth  int    `json:"depth"`
}

// Validate validates the query
func (q GetNeighborsQuery) Validate() error {
	if q.NodeID == "" {
		return pkgerrors.NewValidationError("node ID is required")
	}
	if q.Depth < 0 {
		return pkgerrors.NewValidationErrorf("depth must be >= 0, got %d", q.Depth)
	}
	return nil
}

// FindPathQuery asks for a shortest path between two nodes
type FindPathQuery struct {
	FromID string `json:"from"`
	ToID   string `json:"to"`
}

// Validate validates the query
func (q FindPathQuery) Validate() error {
	if q.FromID == "" || q.ToID == "" {
		return pkgerrors.NewValidationError("from and to are required")
	}
	return nil
}

// GetHubsQuery asks for the most connected nodes
type GetHubsQuery struct {
	Limit int `json:"limit"`
}

// Validate validates the query
func (q GetHubsQuery) Validate() error {
	if q.Limit < 0 {
		return pkgerrors.NewValidationErrorf("limit must be >= 0, got %d", q.Limit)
	}
	return nil
}

// GetOrphansQuery asks for nodes without edges
type GetOrphansQuery struct{}

// Validate validates the query
func (q GetOrphansQuery) Validate() error { return nil }

// GetConnectivityQuery asks for the connectivity report of a node
type GetConnectivityQuery struct {
	NodeID string `json:"nodeId"`
}

// Validate validates the query
func (q GetConnectivityQuery) Validate() error {
	if q.NodeID == "" {
		return pkgerrors.NewValidationError("node ID is required")
	}
	return nil
}

// GetCurrentVaultQuery asks which vault is being served
type GetCurrentVaultQuery struct{}

// Validate validates the query
func (q GetCurrentVaultQuery) Validate() error { return nil }

func validateOptions(opts domainservices.BuildOptions) error {
	if opts.MaxNodes < 0 {
		return pkgerrors.NewValidationErrorf("maxNodes must be >= 0, got %d", opts.MaxNodes)
	}
	return nil
}
