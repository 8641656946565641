package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vaultgraph/domain/events"
)

// Source is the EventBridge source of every published event
const Source = "vaultgraph.graph"

// EventBridge limits PutEvents to 10 entries
const batchSize = 10

// Client is the subset of the EventBridge API the publisher uses
type Client interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// envelope is the Detail payload of every entry
type envelope struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	VaultID    string             `json:"vaultId"`
	OccurredAt time.Time          `json:"occurredAt"`
	Version    int                `json:"version"`
	Data       events.DomainEvent `json:"data"`
}

// Publisher implements ports.EventPublisher using AWS EventBridge
type Publisher struct {
	client       Client
	eventBusName string
	logger       *zap.Logger
	newID        func() string
}

// NewPublisher creates a new EventBridge publisher
func NewPublisher(client Client, eventBusName string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		logger:       logger,
		newID:        uuid.NewString,
	}
}

// Publish sends one event
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch sends events in PutEvents sized chunks and stops at the
// first chunk that fails.
func (p *Publisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for chunk := range slices.Chunk(batch, batchSize) {
		if err := p.put(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) entry(event events.DomainEvent) (types.PutEventsRequestEntry, error) {
	detail, err := json.Marshal(envelope{
		ID:         p.newID(),
		Type:       event.GetEventType(),
		VaultID:    event.GetAggregateID(),
		OccurredAt: event.GetTimestamp(),
		Version:    event.GetVersion(),
		Data:       event,
	})
	if err != nil {
		return types.PutEventsRequestEntry{}, err
	}
	return types.PutEventsRequestEntry{
		EventBusName: aws.String(p.eventBusName),
		Source:       aws.String(Source),
		DetailType:   aws.String(event.GetEventType()),
		Detail:       aws.String(string(detail)),
		Time:         aws.Time(event.GetTimestamp()),
		Resources:    []string{"vaultgraph:vault/" + event.GetAggregateID()},
	}, nil
}

// put sends at most batchSize events. Events that cannot be encoded are
// logged and skipped.
func (p *Publisher) put(ctx context.Context, chunk []events.DomainEvent) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(chunk))
	sent := make([]events.DomainEvent, 0, len(chunk))
	for _, event := range chunk {
		e, err := p.entry(event)
		if err != nil {
			p.logger.Error("Dropping unencodable event", zap.String("event_type", event.GetEventType()), zap.Error(err))
			continue
		}
		entries = append(entries, e)
		sent = append(sent, event)
	}
	if len(entries) == 0 {
		return nil
	}

	out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("eventbridge PutEvents on %s: %w", p.eventBusName, err)
	}

	if out.FailedEntryCount == 0 {
		p.logger.Debug("Events published", zap.String("event_bus", p.eventBusName), zap.Int("count", len(entries)))
		return nil
	}
	for i, res := range out.Entries {
		if res.ErrorCode == nil || i >= len(sent) {
			continue
		}
		p.logger.Error("Event rejected by EventBridge",
			zap.String("event_type", sent[i].GetEventType()),
			zap.String("error_code", aws.ToString(res.ErrorCode)),
			zap.String("error_message", aws.ToString(res.ErrorMessage)),
		)
	}
	return fmt.Errorf("%d events failed to publish", out.FailedEntryCount)
}
