package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stockledger/internal/core/id"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/pkg/logger"
)

// EventsChannel is the Pub/Sub channel domain events are relayed to.
const EventsChannel = "stockledger:events"

// Publisher is the subset of the Redis API the event channel needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// EventEnvelope is the wire form of a relayed outbox message.
type EventEnvelope struct {
	ID            id.ID           `json:"id"`
	EventType     string          `json:"eventType"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   id.ID           `json:"aggregateId"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// EventChannel relays outbox messages to Redis Pub/Sub.
// It implements postgres.OutboxHandler.
type EventChannel struct {
	client  Publisher
	channel string
}

// NewEventChannel creates a relay target publishing to EventsChannel.
func NewEventChannel(client Publisher) *EventChannel {
	return &EventChannel{client: client, channel: EventsChannel}
}

var _ postgres.OutboxHandler = (*EventChannel)(nil)

// Handle publishes msg. Zero subscribers is not an error: Pub/Sub is fire and
// forget and consumers that need history read the outbox.
func (c *EventChannel) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	data, err := json.Marshal(EventEnvelope{
		ID:            msg.ID,
		EventType:     msg.EventType,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		Payload:       payload,
		OccurredAt:    msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", msg.ID, err)
	}

	receivers, err := c.client.Publish(ctx, c.channel, data).Result()
	if err != nil {
		return fmt.Errorf("publish event %s: %w", msg.ID, err)
	}

	logger.Debug(ctx, "event relayed",
		"event_type", msg.EventType,
		"aggregate_id", msg.AggregateID,
		"receivers", receivers)
	return nil
}
