package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"

	"vaultgraph/infrastructure/persistence/dynamodb"
	"vaultgraph/pkg/auth"
)

type importFlags struct {
	table    string
	region   string
	endpoint string
}

func newImportCommand(flags *globalFlags) *cobra.Command {
	opts := &importFlags{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a vault's metadata into the DynamoDB table",
		Long: `Read a metadata export and write one item per document into the DynamoDB
table served by the API when METADATA_SOURCE=dynamodb. Existing documents
with the same path are overwritten.`,
		Example: `  graphctl import --file notes.json --table vaultgraph
  graphctl import --dir ./metadata --vault work --endpoint http://localhost:8000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd, flags, opts)
		},
	}

	cmd.Flags().StringVar(&opts.table, "table", envOr("TABLE_NAME", "vaultgraph"), "DynamoDB table name")
	cmd.Flags().StringVar(&opts.region, "region", envOr("AWS_REGION", "us-west-2"), "AWS region")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "DynamoDB endpoint override, e.g. DynamoDB Local")
	return cmd
}

func runImport(cmd *cobra.Command, flags *globalFlags, opts *importFlags) error {
	ctx := cmd.Context()
	logger := flags.logger()
	vaultID := flags.vaultID()

	provider, err := flags.provider(logger)
	if err != nil {
		return err
	}
	records, err := provider.GetMetadata(ctx, vaultID)
	if err != nil {
		return err
	}

	client, err := newDynamoDBClient(ctx, opts)
	if err != nil {
		return err
	}

	repo := dynamodb.NewMetadataRepository(client, opts.table, logger)
	written, err := repo.ImportDocuments(ctx, vaultID, records)
	if err != nil {
		return fmt.Errorf("import stopped after %d documents: %w", written, err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d documents into vault %s (table %s)\n", written, vaultID, opts.table)
	return nil
}

func newDynamoDBClient(ctx context.Context, opts *importFlags) (*awsdynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if opts.endpoint != "" {
			o.BaseEndpoint = aws.String(opts.endpoint)
		}
	}), nil
}

func newTokenCommand() *cobra.Command {
	var (
		secret  string
		issuer  string
		subject string
		vaults  []string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an API token for local testing",
		Example: `  JWT_SECRET=... graphctl token --subject alice --vaults notes,work
  graphctl token --subject ci --vaults '*' --ttl 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				return errors.New("a signing secret is required (--secret or JWT_SECRET)")
			}
			if subject == "" {
				return errors.New("--subject is required")
			}

			token, err := auth.GenerateToken(auth.JWTConfig{
				SecretKey: secret,
				Issuer:    issuer,
				Audience:  []string{auth.DefaultAudience},
			}, subject, vaults, ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HS256 signing secret")
	cmd.Flags().StringVar(&issuer, "issuer", envOr("JWT_ISSUER", "vaultgraph"), "token issuer")
	cmd.Flags().StringVar(&subject, "subject", "", "token subject")
	cmd.Flags().StringSliceVar(&vaults, "vaults", nil, "vaults the token may read (empty = all)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
