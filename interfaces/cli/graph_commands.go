package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"vaultgraph/domain/core/entities"
)

func newStatsCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarise the vault graph",
		Example: `  graphctl stats --file notes.json
  graphctl stats --dir ./metadata --vault work -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			graphs, err := flags.engine()
			if err != nil {
				return err
			}
			stats, err := graphs.GetGraphStats(cmd.Context())
			if err != nil {
				return err
			}
			return renderStats(cmd.OutOrStdout(), graphs.CurrentVault(), stats, flags.output)
		},
	}
}

func newGraphCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print the global graph",
		Long:  "Print the global graph. Build flags (--include-tags, --max-nodes, ...) apply.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			graphs, err := flags.engine()
			if err != nil {
				return err
			}
			graph, err := graphs.GetGlobalGraph(cmd.Context(), flags.buildOptions())
			if err != nil {
				return err
			}
			return renderGraph(cmd.OutOrStdout(), graph, flags.output)
		},
	}
}

func newHubsCommand(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "hubs",
		Short: "List the most connected nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			graphs, err := flags.engine()
			if err != nil {
				return err
			}
			nodes, err := graphs.MostConnected(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return renderNodes(cmd.OutOrStdout(), nodes, flags.output)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of hubs to list")
	return cmd
}

func newOrphansCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "orphans",
		Short: "List nodes without any edge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			graphs, err := flags.engine()
			if err != nil {
				return err
			}
			nodes, err := graphs.Orphans(cmd.Context())
			if err != nil {
				return err
			}
			return renderNodes(cmd.OutOrStdout(), nodes, flags.output)
		},
	}
}

func newFindCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "find <identifier>",
		Short: "Resolve an id, label or title to a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			graphs, err := flags.engine()
			if err != nil {
				return err
			}
			node, err := graphs.FindNode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if node == nil {
				return fmt.Errorf("no node matches %q", args[0])
			}
			return renderNodes(cmd.OutOrStdout(), []entities.Node{*node}, flags.output)
		},
	}
}

func newLocalCommand(flags *globalFlags) *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "local <note>",
		Short: "Print the graph within --depth hops of a note",
		Example: `  graphctl local "Projects/Plan.md" --depth 2 --file notes.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			graphs, err := flags.engine()
			if err != nil {
				return err
			}
			graph, err := graphs.GetLocalGraph(cmd.Context(), args[0], depth, flags.buildOptions())
			if err != nil {
				return err
			}
			return renderGraph(cmd.OutOrStdout(), graph, flags.output)
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "d", 1, "number of hops to include")
	return cmd
}

func newNeighborsCommand(flags *globalFlags) *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "neighbors <identifier>",
		Short: "List nodes within --depth hops of a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			graphs, err := flags.engine()
			if err != nil {
				return err
			}
			id, err := resolve(cmd.Context(), graphs, args[0])
			if err != nil {
				return err
			}
			nodes, err := graphs.Neighbors(cmd.Context(), id, depth)
			if err != nil {
				return err
			}
			return renderNodes(cmd.OutOrStdout(), nodes, flags.output)
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "d", 1, "number of hops to include")
	return cmd
}

func newTagCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tag <tag>",
		Short: "Print a tag and the notes carrying it",
		Example: `  graphctl tag project/alpha --file notes.json
  graphctl tag '#inbox' --file notes.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			graphs, err := flags.engine()
			if err != nil {
				return err
			}
			graph, err := graphs.FilterByTag(cmd.Context(), args[0], flags.buildOptions())
			if err != nil {
				return err
			}
			return renderGraph(cmd.OutOrStdout(), graph, flags.output)
		},
	}
}

func newPathCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "path <from> <to>",
		Short: "Print a shortest path between two nodes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			graphs, err := flags.engine()
			if err != nil {
				return err
			}
			from, err := resolve(cmd.Context(), graphs, args[0])
			if err != nil {
				return err
			}
			to, err := resolve(cmd.Context(), graphs, args[1])
			if err != nil {
				return err
			}
			path, err := graphs.ShortestPath(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			return renderPath(cmd.OutOrStdout(), path, flags.output)
		},
	}
}

func newConnectivityCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "connectivity <identifier>",
		Short: "Describe how a node is wired into the graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			graphs, err := flags.engine()
			if err != nil {
				return err
			}
			node, err := graphs.FindNode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if node == nil {
				return fmt.Errorf("no node matches %q", args[0])
			}
			report, err := graphs.ConnectivityOf(cmd.Context(), node.ID)
			if err != nil {
				return err
			}
			return renderConnectivity(cmd.OutOrStdout(), *node, report, flags.output)
		},
	}
}
