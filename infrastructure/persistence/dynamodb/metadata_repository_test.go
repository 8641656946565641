package dynamodb

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultgraph/application/ports"
	"vaultgraph/domain/core/entities"
	pkgerrors "vaultgraph/pkg/errors"
)

var _ ports.MetadataProvider = (*MetadataRepository)(nil)

// fakeClient serves query pages in order and records batch writes
type fakeClient struct {
	pages       []*dynamodb.QueryOutput
	queryErr    error
	queries     []*dynamodb.QueryInput
	batches     []*dynamodb.BatchWriteItemInput
	unprocessed int // number of calls that bounce their first item back
}

func (f *fakeClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queries = append(f.queries, params)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	page := f.pages[len(f.queries)-1]
	return page, nil
}

func (f *fakeClient) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.batches = append(f.batches, params)
	out := &dynamodb.BatchWriteItemOutput{}
	if f.unprocessed > 0 {
		f.unprocessed--
		for table, reqs := range params.RequestItems {
			out.UnprocessedItems = map[string][]types.WriteRequest{table: reqs[:1]}
		}
	}
	return out, nil
}

func mustItem(t *testing.T, item documentItem) map[string]types.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMap(item)
	require.NoError(t, err)
	return av
}

func TestMetadataRepository_GetMetadataPaginates(t *testing.T) {
	client := &fakeClient{
		pages: []*dynamodb.QueryOutput{
			{
				Items: []map[string]types.AttributeValue{
					mustItem(t, documentItem{PK: "VAULT#notes", SK: "DOC#A.md", DocumentRecord: entities.DocumentRecord{
						Path:  "A.md",
						Tags:  []string{"x"},
						Links: []entities.LinkRef{{Path: "B.md"}},
					}}),
				},
				LastEvaluatedKey: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: "VAULT#notes"},
					"SK": &types.AttributeValueMemberS{Value: "DOC#A.md"},
				},
			},
			{
				Items: []map[string]types.AttributeValue{
					// path attribute missing: recovered from the sort key
					mustItem(t, documentItem{PK: "VAULT#notes", SK: "DOC#B.md"}),
					// tags of the wrong type: skipped
					{
						"PK":   &types.AttributeValueMemberS{Value: "VAULT#notes"},
						"SK":   &types.AttributeValueMemberS{Value: "DOC#C.md"},
						"tags": &types.AttributeValueMemberN{Value: "3"},
					},
				},
			},
		},
	}
	repo := NewMetadataRepository(client, "vaultgraph", nil)

	records, err := repo.GetMetadata(context.Background(), "notes")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A.md", records[0].Path)
	assert.Equal(t, []string{"x"}, records[0].Tags)
	assert.Equal(t, "B.md", records[1].Path)

	require.Len(t, client.queries, 2)
	assert.Equal(t, "vaultgraph", *client.queries[0].TableName)
	assert.NotEmpty(t, client.queries[1].ExclusiveStartKey)
}

func TestMetadataRepository_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantUnavailable bool
		wantCode        string
	}{
		{
			name:            "missing table",
			err:             &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "no table"},
			wantUnavailable: true,
			wantCode:        "ResourceNotFoundException",
		},
		{
			name:            "throttled",
			err:             &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException"},
			wantUnavailable: true,
			wantCode:        "ProvisionedThroughputExceededException",
		},
		{
			name:     "validation",
			err:      &smithy.GenericAPIError{Code: "ValidationException"},
			wantCode: "ValidationException",
		},
		{
			name: "transport",
			err:  errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMetadataRepository(&fakeClient{queryErr: tt.err}, "vaultgraph", nil)

			_, err := repo.GetMetadata(context.Background(), "notes")
			require.Error(t, err)
			assert.Equal(t, tt.wantUnavailable, pkgerrors.IsUnavailable(err))
			appErr := pkgerrors.GetAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestMetadataRepository_ImportDocuments(t *testing.T) {
	client := &fakeClient{unprocessed: 1}
	repo := NewMetadataRepository(client, "vaultgraph", nil)

	records := make([]entities.DocumentRecord, 0, 30)
	for i := 0; i < 30; i++ {
		records = append(records, entities.DocumentRecord{Path: string(rune('a'+i%26)) + "/" + string(rune('0'+i/26)) + ".md"})
	}
	records = append(records, entities.DocumentRecord{Path: ""})

	written, err := repo.ImportDocuments(context.Background(), "notes", records)
	require.NoError(t, err)
	assert.Equal(t, 30, written)

	// 25 + retry of one bounced item + 5
	require.Len(t, client.batches, 3)
	assert.Len(t, client.batches[0].RequestItems["vaultgraph"], 25)
	assert.Len(t, client.batches[1].RequestItems["vaultgraph"], 1)
	assert.Len(t, client.batches[2].RequestItems["vaultgraph"], 5)

	var item documentItem
	require.NoError(t, attributevalue.UnmarshalMap(client.batches[2].RequestItems["vaultgraph"][0].PutRequest.Item, &item))
	assert.Equal(t, "VAULT#notes", item.PK)
	assert.Equal(t, "DOC#"+item.Path, item.SK)
	assert.Equal(t, documentEntity, item.EntityType)
}
