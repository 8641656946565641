package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"vaultgraph/domain/core/aggregates"
	"vaultgraph/domain/core/entities"
	domainservices "vaultgraph/domain/services"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderNodes(w io.Writer, nodes []entities.Node, format string) error {
	if format == outputJSON {
		if nodes == nil {
			nodes = []entities.Node{}
		}
		return renderJSON(w, nodes)
	}
	if len(nodes) == 0 {
		_, _ = fmt.Fprintln(w, "(0 nodes)")
		return nil
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Title", "Type", "Size", "Path"})
	t.SetColumnConfigs([]table.ColumnConfig{{Name: "Size", Align: text.AlignRight}})
	for _, node := range nodes {
		t.AppendRow(table.Row{node.ID, node.Title, node.Type, node.Size, node.Path})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d nodes)\n", len(nodes))
	return nil
}

func renderGraph(w io.Writer, graph *aggregates.Graph, format string) error {
	if format == outputJSON {
		return renderJSON(w, graph)
	}
	if graph.IsEmpty() {
		_, _ = fmt.Fprintln(w, "(empty graph)")
		return nil
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Title", "Type", "Size", "Linked to"})
	for _, node := range graph.Nodes() {
		var linked []string
		for _, edge := range graph.IncidentEdges(node.ID) {
			if other, ok := graph.Node(edge.Other(node.ID)); ok {
				linked = append(linked, other.Title)
			}
		}
		t.AppendRow(table.Row{node.ID, node.Title, node.Type, node.Size, strings.Join(linked, ", ")})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d nodes, %d edges)\n", graph.NodeCount(), graph.EdgeCount())
	return nil
}

func renderStats(w io.Writer, vaultID string, stats domainservices.GraphStats, format string) error {
	if format == outputJSON {
		return renderJSON(w, stats)
	}

	t := newTable(w)
	t.SetTitle("Vault " + vaultID)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Nodes", stats.TotalNodes},
		{"Edges", stats.TotalEdges},
		{"Tags", stats.TotalTags},
		{"Orphans", stats.OrphanedNodes},
		{"Average connections", fmt.Sprintf("%.2f", stats.AverageConnections)},
	})
	t.Render()
	return nil
}

func renderPath(w io.Writer, path []entities.Node, format string) error {
	if format == outputJSON {
		result := struct {
			Path   []entities.Node `json:"path"`
			Length int             `json:"length"`
			Found  bool            `json:"found"`
		}{Path: path, Found: len(path) > 0}
		if result.Found {
			result.Length = len(path) - 1
		} else {
			result.Path = []entities.Node{}
		}
		return renderJSON(w, result)
	}
	if len(path) == 0 {
		_, _ = fmt.Fprintln(w, "no path")
		return nil
	}

	titles := make([]string, len(path))
	for i, node := range path {
		titles[i] = node.Title
	}
	_, _ = fmt.Fprintln(w, strings.Join(titles, " -> "))
	_, _ = fmt.Fprintf(w, "(%d hops)\n", len(path)-1)
	return nil
}

func renderConnectivity(w io.Writer, node entities.Node, report *domainservices.Connectivity, format string) error {
	if format == outputJSON {
		return renderJSON(w, report)
	}

	t := newTable(w)
	t.SetTitle(node.Title)
	t.AppendRows([]table.Row{
		{"In degree", report.InDegree},
		{"Out degree", report.OutDegree},
		{"Total degree", report.TotalDegree},
		{"Tags", strings.Join(report.ConnectedTags, ", ")},
		{"Files", strings.Join(report.ConnectedFiles, ", ")},
	})
	t.Render()
	return nil
}
