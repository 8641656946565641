package entities

// Node is a vertex of a built graph.
//
// ID is an arena index assigned fresh on every build and must not be held
// across rebuilds; Title (File) or Label (Tag) together with Type is the
// stable identity.
type Node struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Title string   `json:"title"`
	Type  NodeType `json:"type"`
	Size  int      `json:"size"`
	Path  string   `json:"path,omitempty"`
}

// IsFile reports whether the node represents a document
func (n Node) IsFile() bool {
	return n.Type == NodeTypeFile
}

// IsTag reports whether the node represents a tag
func (n Node) IsTag() bool {
	return n.Type == NodeTypeTag
}

// Edge connects two nodes. From/To keep discovery direction even though
// existence is deduplicated on the unordered pair.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Type EdgeType `json:"type"`
}

// Touches reports whether the edge has nodeID as one of its endpoints
func (e Edge) Touches(nodeID string) bool {
	return e.From == nodeID || e.To == nodeID
}

// Other returns the endpoint opposite to nodeID. For a self-loop it returns nodeID.
func (e Edge) Other(nodeID string) string {
	if e.From == nodeID {
		return e.To
	}
	return e.From
}

// IsSelfLoop reports whether both endpoints are the same node
func (e Edge) IsSelfLoop() bool {
	return e.From == e.To
}

// PairKey is the unordered identity of the edge used for deduplication
func (e Edge) PairKey() string {
	return PairKey(e.Type, e.From, e.To)
}

// PairKey builds the unordered dedup key for an edge of the given type
func PairKey(edgeType EdgeType, a, b string) string {
	if b < a {
		a, b = b, a
	}
	return string(edgeType) + "|" + a + "|" + b
}
