package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/rmorales/supplysync-backend/pkg/logger"
	"github.com/rmorales/supplysync-backend/pkg/outbox"
	"github.com/rmorales/supplysync-backend/pkg/outbox/idempotency"
	"github.com/rmorales/supplysync-backend/pkg/outbox/payloads"
)

const consumerName = "pricefeed"

type counterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	CounterKey(name string) string
}

// Consumer tails the price event subscription and keeps per-tenant delivery
// counters. Pub/Sub delivers at least once; the idempotency guard collapses
// redelivered events so counters stay accurate.
type Consumer struct {
	subscription *pubsub.Subscriber
	guard        *idempotency.Manager
	counters     counterStore
	logg         *logger.Logger
}

func NewConsumer(subscription *pubsub.Subscriber, guard *idempotency.Manager, counters counterStore, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, errors.New("price subscription is required")
	}
	if guard == nil {
		return nil, errors.New("idempotency guard is required")
	}
	if counters == nil {
		return nil, errors.New("counter store is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		subscription: subscription,
		guard:        guard,
		counters:     counters,
		logg:         logg,
	}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.Process(ctx, msg.ID, msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Process handles one delivery. Returns true when the message should be
// acked: either it was recorded or it is poison that retrying cannot fix.
func (c *Consumer) Process(ctx context.Context, messageID string, data []byte) bool {
	fields := map[string]any{"message_id": messageID}
	logCtx := c.logg.WithFields(ctx, fields)

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode event envelope", err)
		return true
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "event id is not a uuid", err)
		return true
	}

	var event payloads.PriceUpdatedEvent
	if err := json.Unmarshal(envelope.Data, &event); err != nil {
		c.logg.Error(logCtx, "failed to decode price event payload", err)
		return true
	}

	fields["event_id"] = envelope.EventID
	fields["tenant_id"] = event.TenantID.String()
	fields["pair_id"] = event.ConnectionPairID.String()
	logCtx = c.logg.WithFields(ctx, fields)
	logCtx = c.logg.WithSKU(logCtx, event.SKU)

	seen, err := c.guard.CheckAndMarkProcessed(ctx, consumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return false
	}
	if seen {
		c.logg.Info(logCtx, "price event already processed")
		return true
	}

	key := c.counters.CounterKey(fmt.Sprintf("price_updates:%s", event.TenantID))
	if _, err := c.counters.Incr(ctx, key); err != nil {
		// Roll back the processed mark so the redelivery counts.
		if delErr := c.guard.Delete(ctx, consumerName, eventID); delErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency mark", delErr)
		}
		c.logg.Error(logCtx, "failed to record price update", err)
		return false
	}

	c.logg.Info(logCtx, "price update recorded")
	return true
}
