package services

import (
	"sort"
	"strconv"
	"strings"

	"vaultgraph/domain/core/aggregates"
	"vaultgraph/domain/core/entities"
	"vaultgraph/domain/core/valueobjects"
)

// BuildOptions controls which parts of the vault end up in the graph
type BuildOptions struct {
	IncludeTags        bool     `json:"includeTags" yaml:"include_tags"`
	IncludeOrphanNodes bool     `json:"includeOrphanNodes" yaml:"include_orphan_nodes"`
	MaxNodes           int      `json:"maxNodes,omitempty" yaml:"max_nodes"`
	FileTypeFilter     []string `json:"fileTypeFilter,omitempty" yaml:"file_type_filter"`
}

// DefaultBuildOptions includes tags and orphans, with no cap and no type filter
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		IncludeTags:        true,
		IncludeOrphanNodes: true,
	}
}

// Key returns a canonical string for the options, suitable as a cache key
func (o BuildOptions) Key() string {
	exts := make([]string, 0, len(o.FileTypeFilter))
	for _, ext := range o.FileTypeFilter {
		if n := valueobjects.NormalizeExtension(ext); n != "" {
			exts = append(exts, n)
		}
	}
	sort.Strings(exts)

	var b strings.Builder
	b.WriteString("tags=")
	b.WriteString(strconv.FormatBool(o.IncludeTags))
	b.WriteString(",orphans=")
	b.WriteString(strconv.FormatBool(o.IncludeOrphanNodes))
	b.WriteString(",max=")
	b.WriteString(strconv.Itoa(o.MaxNodes))
	b.WriteString(",types=")
	b.WriteString(strings.Join(exts, "|"))
	return b.String()
}

// BuildReport counts what a build skipped. Skips are not errors.
type BuildReport struct {
	Records         int `json:"records"`
	MissingPath     int `json:"missingPath"`
	FilteredByType  int `json:"filteredByType"`
	DuplicateTitles int `json:"duplicateTitles"`
	AttachmentLinks int `json:"attachmentLinks"`
	UnresolvedLinks int `json:"unresolvedLinks"`
	TruncatedNodes  int `json:"truncatedNodes"`
	DroppedOrphans  int `json:"droppedOrphans"`
}

// GraphBuilder turns document records into a graph snapshot
type GraphBuilder struct{}

// NewGraphBuilder creates a new graph builder
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{}
}

// Build constructs the full graph from records
func (b *GraphBuilder) Build(records []entities.DocumentRecord, opts BuildOptions) *aggregates.Graph {
	graph, _ := b.BuildWithReport(records, opts)
	return graph
}

// BuildWithReport constructs the graph in two passes (nodes and tags, then
// links and backlinks), recomputes sizes and applies the node cap and
// orphan filter.
func (b *GraphBuilder) BuildWithReport(records []entities.DocumentRecord, opts BuildOptions) (*aggregates.Graph, BuildReport) {
	state := newBuildState(len(records))
	report := BuildReport{Records: len(records)}
	allowed := allowedExtensions(opts.FileTypeFilter)

	// Pass 1: file nodes, tag nodes and tag edges
	recordNode := make([]int, len(records))
	for i, record := range records {
		recordNode[i] = -1

		if strings.TrimSpace(record.Path) == "" {
			report.MissingPath++
			continue
		}
		if allowed != nil && !allowed[valueobjects.Extension(record.Path)] {
			report.FilteredByType++
			continue
		}

		title := valueobjects.StripExtension(record.Path)
		idx, exists := state.fileByTitle[title]
		if exists {
			report.DuplicateTitles++
		} else {
			idx = state.addNode(entities.Node{
				Label: valueobjects.BareName(record.Path),
				Title: title,
				Type:  entities.NodeTypeFile,
				Path:  record.Path,
			})
			state.fileByTitle[title] = idx
		}
		recordNode[i] = idx

		if !opts.IncludeTags {
			continue
		}
		for _, tag := range record.Tags {
			label := valueobjects.TagLabel(tag)
			if label == "" {
				continue
			}
			tagIdx, ok := state.tagByLabel[label]
			if !ok {
				tagIdx = state.addNode(entities.Node{
					Label: label,
					Title: label,
					Type:  entities.NodeTypeTag,
				})
				state.tagByLabel[label] = tagIdx
			}
			state.addEdge(idx, tagIdx, entities.EdgeTypeTag)
		}
	}

	// Pass 2: links and backlinks between file nodes
	for i, record := range records {
		self := recordNode[i]
		if self < 0 {
			continue
		}

		for _, link := range record.Links {
			target, ok := state.resolve(link.Path, &report)
			if !ok {
				continue
			}
			state.addEdge(self, target, entities.EdgeTypeLink)
		}
		for _, backlink := range record.Backlinks {
			source, ok := state.resolve(backlink.Path, &report)
			if !ok {
				continue
			}
			state.addEdge(source, self, entities.EdgeTypeLink)
		}
	}

	nodes, edges := state.nodes, state.edges
	recomputeSizes(nodes, edges)

	if opts.MaxNodes > 0 && len(nodes) > opts.MaxNodes {
		report.TruncatedNodes = len(nodes) - opts.MaxNodes
		nodes, edges = keepTopNodes(nodes, edges, opts.MaxNodes)
		recomputeSizes(nodes, edges)
	}

	if !opts.IncludeOrphanNodes {
		kept := nodes[:0:0]
		for _, node := range nodes {
			if node.Size > 0 {
				kept = append(kept, node)
			}
		}
		report.DroppedOrphans = len(nodes) - len(kept)
		nodes = kept
	}

	return aggregates.NewGraph(nodes, edges), report
}

// buildState holds the mutable arena used while a build is in progress
type buildState struct {
	nodes       []entities.Node
	edges       []entities.Edge
	fileByTitle map[string]int
	tagByLabel  map[string]int
	pairs       map[string]struct{}
}

func newBuildState(capacity int) *buildState {
	return &buildState{
		nodes:       make([]entities.Node, 0, capacity),
		edges:       make([]entities.Edge, 0, capacity),
		fileByTitle: make(map[string]int, capacity),
		tagByLabel:  make(map[string]int),
		pairs:       make(map[string]struct{}, capacity),
	}
}

func (s *buildState) addNode(node entities.Node) int {
	node.ID = strconv.Itoa(len(s.nodes))
	s.nodes = append(s.nodes, node)
	return len(s.nodes) - 1
}

// addEdge appends an edge unless the same type already joins the unordered pair
func (s *buildState) addEdge(from, to int, edgeType entities.EdgeType) bool {
	fromID, toID := s.nodes[from].ID, s.nodes[to].ID
	key := entities.PairKey(edgeType, fromID, toID)
	if _, exists := s.pairs[key]; exists {
		return false
	}
	s.pairs[key] = struct{}{}
	s.edges = append(s.edges, entities.Edge{From: fromID, To: toID, Type: edgeType})
	return true
}

// resolve maps a link path to a file node, skipping attachments and unknown targets
func (s *buildState) resolve(p string, report *BuildReport) (int, bool) {
	if valueobjects.IsAttachmentPath(p) {
		report.AttachmentLinks++
		return 0, false
	}
	idx, ok := s.fileByTitle[valueobjects.StripExtension(p)]
	if !ok {
		report.UnresolvedLinks++
		return 0, false
	}
	return idx, true
}

func allowedExtensions(filter []string) map[string]bool {
	if len(filter) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(filter))
	for _, ext := range filter {
		if n := valueobjects.NormalizeExtension(ext); n != "" {
			allowed[n] = true
		}
	}
	if len(allowed) == 0 {
		return nil
	}
	return allowed
}

// recomputeSizes sets each node's size to the number of edges touching it.
// A self-loop touches its node once.
func recomputeSizes(nodes []entities.Node, edges []entities.Edge) {
	counts := make(map[string]int, len(nodes))
	for _, edge := range edges {
		counts[edge.From]++
		if !edge.IsSelfLoop() {
			counts[edge.To]++
		}
	}
	for i := range nodes {
		nodes[i].Size = counts[nodes[i].ID]
	}
}

// keepTopNodes keeps the limit largest nodes (ties by original order), in
// original order, and drops every edge that lost an endpoint.
func keepTopNodes(nodes []entities.Node, edges []entities.Edge, limit int) ([]entities.Node, []entities.Edge) {
	order := make([]int, len(nodes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return nodes[order[a]].Size > nodes[order[b]].Size
	})

	keep := make([]bool, len(nodes))
	for _, i := range order[:limit] {
		keep[i] = true
	}

	kept := make([]entities.Node, 0, limit)
	ids := make(map[string]bool, limit)
	for i, node := range nodes {
		if keep[i] {
			kept = append(kept, node)
			ids[node.ID] = true
		}
	}

	keptEdges := make([]entities.Edge, 0, len(edges))
	for _, edge := range edges {
		if ids[edge.From] && ids[edge.To] {
			keptEdges = append(keptEdges, edge)
		}
	}

	return kept, keptEdges
}
