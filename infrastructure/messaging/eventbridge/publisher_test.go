package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultgraph/application/ports"
	"vaultgraph/domain/events"
)

var _ ports.EventPublisher = (*Publisher)(nil)

type fakeClient struct {
	calls  []*eventbridge.PutEventsInput
	failed int32
	err    error
}

func (f *fakeClient) PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	out := &eventbridge.PutEventsOutput{FailedEntryCount: f.failed}
	for i := range params.Entries {
		entry := types.PutEventsResultEntry{EventId: aws.String("id")}
		if int32(i) < f.failed {
			entry = types.PutEventsResultEntry{ErrorCode: aws.String("InternalFailure"), ErrorMessage: aws.String("boom")}
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestPublisher_PublishEnvelope(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, "vaultgraph-events", nil)
	p.newID = func() string { return "evt-1" }

	require.NoError(t, p.Publish(context.Background(), events.NewVaultSwitched("notes", "work", at)))

	require.Len(t, client.calls, 1)
	require.Len(t, client.calls[0].Entries, 1)
	entry := client.calls[0].Entries[0]
	assert.Equal(t, "vaultgraph-events", aws.ToString(entry.EventBusName))
	assert.Equal(t, Source, aws.ToString(entry.Source))
	assert.Equal(t, events.EventTypeVaultSwitched, aws.ToString(entry.DetailType))
	assert.Equal(t, []string{"vaultgraph:vault/work"}, entry.Resources)

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, "evt-1", detail["id"])
	assert.Equal(t, "work", detail["vaultId"])
	data := detail["data"].(map[string]interface{})
	assert.Equal(t, "notes", data["previous_vault_id"])
}

func TestPublisher_Batches(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, "bus", nil)

	batch := make([]events.DomainEvent, 0, 23)
	for i := 0; i < 23; i++ {
		batch = append(batch, events.NewGraphInvalidated("notes", "refresh", at))
	}

	require.NoError(t, p.PublishBatch(context.Background(), batch))
	require.Len(t, client.calls, 3)
	assert.Len(t, client.calls[0].Entries, 10)
	assert.Len(t, client.calls[1].Entries, 10)
	assert.Len(t, client.calls[2].Entries, 3)

	require.NoError(t, p.PublishBatch(context.Background(), nil))
	assert.Len(t, client.calls, 3)
}

func TestPublisher_Failures(t *testing.T) {
	event := events.NewGraphRebuilt("notes", "t1|o1|m0|f", 3, 2, time.Millisecond, at)

	client := &fakeClient{failed: 1}
	err := NewPublisher(client, "bus", nil).Publish(context.Background(), event)
	assert.EqualError(t, err, "1 events failed to publish")

	cause := errors.New("throttled")
	client = &fakeClient{err: cause}
	err = NewPublisher(client, "bus", nil).Publish(context.Background(), event)
	assert.ErrorIs(t, err, cause)
}
