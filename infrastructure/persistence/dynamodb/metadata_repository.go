// Package dynamodb stores vault document metadata in a single DynamoDB table.
//
// Item layout:
//
//	PK = VAULT#<vaultID>
//	SK = DOC#<document path>
//
// Every other attribute is the document record itself.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"vaultgraph/domain/core/entities"
	pkgerrors "vaultgraph/pkg/errors"
)

const (
	vaultKeyPrefix    = "VAULT#"
	documentKeyPrefix = "DOC#"
	documentEntity    = "DOCUMENT"

	// DynamoDB rejects batch writes larger than this
	maxBatchWriteItems = 25
	maxBatchRetries    = 5
)

// Client is the subset of the DynamoDB API the repository uses
type Client interface {
	dynamodb.QueryAPIClient
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// documentItem represents the DynamoDB item structure for a document
type documentItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	UpdatedAt  string `dynamodbav:"UpdatedAt,omitempty"`
	entities.DocumentRecord
}

// MetadataRepository implements ports.MetadataProvider over DynamoDB
type MetadataRepository struct {
	client    Client
	tableName string
	logger    *zap.Logger
	now       func() time.Time
}

// NewMetadataRepository creates a new MetadataRepository
func NewMetadataRepository(client Client, tableName string, logger *zap.Logger) *MetadataRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetadataRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
		now:       time.Now,
	}
}

// GetMetadata returns every document stored under the vault. Items that do
// not unmarshal are skipped.
func (r *MetadataRepository) GetMetadata(ctx context.Context, vaultID string) ([]entities.DocumentRecord, error) {
	keyEx := expression.Key("PK").Equal(expression.Value(vaultKey(vaultID)))
	keyEx = keyEx.And(expression.Key("SK").BeginsWith(documentKeyPrefix))

	expr, err := expression.NewBuilder().
		WithKeyCondition(keyEx).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	records := make([]entities.DocumentRecord, 0)
	skipped := 0
	pages := 0

	paginator := dynamodb.NewQueryPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classifyError(err, "query documents", vaultID)
		}
		pages++

		for _, av := range page.Items {
			var item documentItem
			if err := attributevalue.UnmarshalMap(av, &item); err != nil {
				r.logger.Warn("Failed to unmarshal document item",
					zap.String("vault", vaultID),
					zap.Error(err),
				)
				skipped++
				continue
			}
			if item.Path == "" {
				item.Path = strings.TrimPrefix(item.SK, documentKeyPrefix)
			}
			records = append(records, item.DocumentRecord)
		}
	}

	r.logger.Debug("Loaded vault metadata from DynamoDB",
		zap.String("vault", vaultID),
		zap.Int("records", len(records)),
		zap.Int("skipped", skipped),
		zap.Int("pages", pages),
	)
	return records, nil
}

// ImportDocuments writes records into the vault, overwriting documents with
// the same path. Unprocessed items are retried with backoff.
func (r *MetadataRepository) ImportDocuments(ctx context.Context, vaultID string, records []entities.DocumentRecord) (int, error) {
	requests := make([]types.WriteRequest, 0, len(records))
	updatedAt := r.now().UTC().Format(time.RFC3339)

	for _, record := range records {
		if record.Path == "" {
			continue
		}
		item := documentItem{
			PK:             vaultKey(vaultID),
			SK:             documentKeyPrefix + record.Path,
			EntityType:     documentEntity,
			UpdatedAt:      updatedAt,
			DocumentRecord: record,
		}
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal document %s: %w", record.Path, err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}

	written := 0
	for start := 0; start < len(requests); start += maxBatchWriteItems {
		end := start + maxBatchWriteItems
		if end > len(requests) {
			end = len(requests)
		}
		if err := r.writeBatch(ctx, vaultID, requests[start:end]); err != nil {
			return written, err
		}
		written += end - start
	}

	r.logger.Info("Imported vault documents",
		zap.String("vault", vaultID),
		zap.Int("documents", written),
	)
	return written, nil
}

func (r *MetadataRepository) writeBatch(ctx context.Context, vaultID string, batch []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{r.tableName: batch}
	backoff := 50 * time.Millisecond

	for attempt := 0; attempt <= maxBatchRetries; attempt++ {
		out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return classifyError(err, "batch write documents", vaultID)
		}
		if len(out.UnprocessedItems[r.tableName]) == 0 {
			return nil
		}
		pending = out.UnprocessedItems

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return pkgerrors.NewDatabaseError("batch write documents",
		fmt.Errorf("%d items unprocessed after %d retries", len(pending[r.tableName]), maxBatchRetries))
}

func vaultKey(vaultID string) string {
	return vaultKeyPrefix + vaultID
}

// classifyError converts DynamoDB API errors to application errors
func classifyError(err error, operation, vaultID string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return pkgerrors.NewDatabaseError(operation, err)
	}

	switch ae.ErrorCode() {
	case "ResourceNotFoundException", "ProvisionedThroughputExceededException", "RequestLimitExceeded", "ThrottlingException":
		return pkgerrors.NewMetadataUnavailableError(vaultID, err).WithCode(ae.ErrorCode())
	default:
		return pkgerrors.NewDatabaseError(operation, err).WithCode(ae.ErrorCode())
	}
}
