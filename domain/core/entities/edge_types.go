package entities

// EdgeType represents the kind of relationship an edge encodes
type EdgeType string

const (
	// EdgeTypeLink connects two documents through an outbound link or a backlink
	EdgeTypeLink EdgeType = "link"

	// EdgeTypeTag connects a document to one of its tags
	EdgeTypeTag EdgeType = "tag"
)

// IsValid checks if the edge type is valid
func (e EdgeType) IsValid() bool {
	switch e {
	case EdgeTypeLink, EdgeTypeTag:
		return true
	default:
		return false
	}
}

// String returns the string representation of the edge type
func (e EdgeType) String() string {
	return string(e)
}

// NodeType distinguishes document nodes from tag nodes
type NodeType string

const (
	// NodeTypeFile represents one document of the vault
	NodeTypeFile NodeType = "file"

	// NodeTypeTag represents one tag shared by every document carrying it
	NodeTypeTag NodeType = "tag"
)

// IsValid checks if the node type is valid
func (n NodeType) IsValid() bool {
	return n == NodeTypeFile || n == NodeTypeTag
}

// String returns the string representation of the node type
func (n NodeType) String() string {
	return string(n)
}
