package entities

// DocumentRecord is the per-document metadata supplied by a metadata provider.
// Path carries the file extension; the extension-stripped path is the join key
// used to resolve links and backlinks.
type DocumentRecord struct {
	Path      string        `json:"path" yaml:"path" dynamodbav:"path"`
	Name      string        `json:"name,omitempty" yaml:"name,omitempty" dynamodbav:"name,omitempty"`
	Tags      []string      `json:"tags,omitempty" yaml:"tags,omitempty" dynamodbav:"tags,omitempty"`
	Links     []LinkRef     `json:"links,omitempty" yaml:"links,omitempty" dynamodbav:"links,omitempty"`
	Backlinks []BacklinkRef `json:"backlinks,omitempty" yaml:"backlinks,omitempty" dynamodbav:"backlinks,omitempty"`
}

// LinkRef is an outbound link to another document
type LinkRef struct {
	Path string `json:"path" yaml:"path" dynamodbav:"path"`
}

// BacklinkRef names a document linking to the record
type BacklinkRef struct {
	Path string `json:"path" yaml:"path" dynamodbav:"path"`
}
