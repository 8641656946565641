package services

import (
	"vaultgraph/domain/core/aggregates"
	"vaultgraph/domain/core/entities"
)

func links(paths ...string) []entities.LinkRef {
	refs := make([]entities.LinkRef, 0, len(paths))
	for _, p := range paths {
		refs = append(refs, entities.LinkRef{Path: p})
	}
	return refs
}

func backlinks(paths ...string) []entities.BacklinkRef {
	refs := make([]entities.BacklinkRef, 0, len(paths))
	for _, p := range paths {
		refs = append(refs, entities.BacklinkRef{Path: p})
	}
	return refs
}

// twoNoteVault: A tagged x links to B, B lists A as a backlink
func twoNoteVault() []entities.DocumentRecord {
	return []entities.DocumentRecord{
		{Path: "A.md", Tags: []string{"x"}, Links: links("B.md")},
		{Path: "B.md", Backlinks: backlinks("A.md")},
	}
}

// chainVault: A - B - C - D, plus an unconnected E
func chainVault() []entities.DocumentRecord {
	return []entities.DocumentRecord{
		{Path: "A.md", Links: links("B.md")},
		{Path: "B.md", Links: links("C.md")},
		{Path: "C.md", Links: links("D.md")},
		{Path: "D.md"},
		{Path: "E.md"},
	}
}

// taggedVault: A and B tagged x and linked, A also links the untagged C
func taggedVault() []entities.DocumentRecord {
	return []entities.DocumentRecord{
		{Path: "A.md", Tags: []string{"x"}, Links: links("B.md", "C.md")},
		{Path: "B.md", Tags: []string{"#x", "y"}},
		{Path: "C.md"},
	}
}

func buildDefault(records []entities.DocumentRecord) *aggregates.Graph {
	return NewGraphBuilder().Build(records, DefaultBuildOptions())
}

func titles(nodes []entities.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Title)
	}
	return out
}

func nodeByTitle(g *aggregates.Graph, title string) entities.Node {
	for _, n := range g.Nodes() {
		if n.Title == title {
			return n
		}
	}
	return entities.Node{}
}
