// Package cli implements graphctl, the command line client for inspecting
// vault graphs offline and seeding the DynamoDB metadata table.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultgraph/application/ports"
	"vaultgraph/application/services"
	"vaultgraph/domain/core/entities"
	domainservices "vaultgraph/domain/services"
	"vaultgraph/infrastructure/metadata"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	file           string
	dir            string
	vault          string
	output         string
	includeTags    bool
	includeOrphans bool
	maxNodes       int
	fileTypes      []string
	verbose        bool
}

// NewRootCommand creates the graphctl root command
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "graphctl",
		Short: "Inspect the knowledge graph of a vault",
		Long: `graphctl builds the knowledge graph of a vault from a metadata export and
answers the same questions as the HTTP API: stats, hubs, orphans, local
graphs, tag neighbourhoods and shortest paths.

Metadata comes either from a single export file (--file) or from a metadata
directory holding one <vault>.json or <vault>.yaml per vault (--dir, --vault).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch flags.output {
			case outputTable, outputJSON:
				return nil
			default:
				return fmt.Errorf("unknown output format %q (use %s or %s)", flags.output, outputTable, outputJSON)
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.file, "file", "f", "", "metadata export file (.json, .yaml)")
	pf.StringVar(&flags.dir, "dir", "./metadata", "metadata directory, used when --file is not set")
	pf.StringVar(&flags.vault, "vault", "", "vault id (default: derived from --file, else \"default\")")
	pf.StringVarP(&flags.output, "output", "o", outputTable, "output format: table or json")
	pf.BoolVar(&flags.includeTags, "include-tags", true, "add tag nodes to the graph")
	pf.BoolVar(&flags.includeOrphans, "include-orphans", true, "keep nodes without edges")
	pf.IntVar(&flags.maxNodes, "max-nodes", 0, "keep only the N most connected nodes (0 = no cap)")
	pf.StringSliceVar(&flags.fileTypes, "file-types", nil, "only include documents with these extensions")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log build diagnostics to stderr")

	root.AddCommand(
		newStatsCommand(flags),
		newGraphCommand(flags),
		newHubsCommand(flags),
		newOrphansCommand(flags),
		newFindCommand(flags),
		newLocalCommand(flags),
		newNeighborsCommand(flags),
		newTagCommand(flags),
		newPathCommand(flags),
		newConnectivityCommand(flags),
		newImportCommand(flags),
		newTokenCommand(),
	)

	return root
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (f *globalFlags) buildOptions() domainservices.BuildOptions {
	return domainservices.BuildOptions{
		IncludeTags:        f.includeTags,
		IncludeOrphanNodes: f.includeOrphans,
		MaxNodes:           f.maxNodes,
		FileTypeFilter:     f.fileTypes,
	}
}

func (f *globalFlags) logger() *zap.Logger {
	if !f.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// vaultID resolves the vault named on the command line
func (f *globalFlags) vaultID() string {
	if f.vault != "" {
		return f.vault
	}
	if f.file != "" {
		if id, ok := metadata.VaultIDFromFile(f.file); ok {
			return id
		}
	}
	return "default"
}

// provider returns the metadata source selected by the flags. An export file
// is read once up front so a bad path fails the command instead of yielding
// an empty graph.
func (f *globalFlags) provider(logger *zap.Logger) (ports.MetadataProvider, error) {
	if f.file == "" {
		return metadata.NewFileProvider(f.dir, logger), nil
	}
	records, err := metadata.ReadExportFile(f.file)
	if err != nil {
		return nil, err
	}
	return ports.MetadataProviderFunc(func(context.Context, string) ([]entities.DocumentRecord, error) {
		return records, nil
	}), nil
}

// engine builds an uncached graph service over the selected metadata
func (f *globalFlags) engine() (*services.GraphService, error) {
	logger := f.logger()
	provider, err := f.provider(logger)
	if err != nil {
		return nil, err
	}
	return services.NewGraphService(provider, nil, nil, nil, logger, services.GraphServiceConfig{
		DefaultVault:   f.vaultID(),
		DefaultOptions: f.buildOptions(),
	}), nil
}

// resolve maps a user-supplied identifier to a node id
func resolve(ctx context.Context, graphs *services.GraphService, identifier string) (string, error) {
	node, err := graphs.FindNode(ctx, identifier)
	if err != nil {
		return "", err
	}
	if node == nil {
		return "", fmt.Errorf("no node matches %q", strings.TrimSpace(identifier))
	}
	return node.ID, nil
}
