package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"bead-inventory-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishBatchApplied publishes a batch-applied event keyed by user.
func (p *EventPublisher) PublishBatchApplied(ctx context.Context, event *models.BatchAppliedEvent) error {
	return p.producer.PublishEvent(ctx, userKey(event.UserID), event)
}

// PublishGroupUpdated publishes a group-updated event keyed by user.
func (p *EventPublisher) PublishGroupUpdated(ctx context.Context, event *models.GroupUpdatedEvent) error {
	return p.producer.PublishEvent(ctx, userKey(event.UserID), event)
}

// PublishGroupDeleted publishes a group-deleted event keyed by user.
func (p *EventPublisher) PublishGroupDeleted(ctx context.Context, event *models.GroupDeletedEvent) error {
	return p.producer.PublishEvent(ctx, userKey(event.UserID), event)
}

// PublishInventoryReset publishes a reset event keyed by user.
func (p *EventPublisher) PublishInventoryReset(ctx context.Context, event *models.InventoryResetEvent) error {
	return p.producer.PublishEvent(ctx, userKey(event.UserID), event)
}

func userKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// DecodeBaseEvent extracts the envelope from a raw message so consumers
// can dispatch on event type without knowing every payload shape.
func DecodeBaseEvent(msg kafka.Message) (*models.BaseEvent, error) {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		return nil, fmt.Errorf("failed to decode event envelope: %w", err)
	}
	if base.EventType == "" {
		return nil, fmt.Errorf("event missing type")
	}
	return &base, nil
}
