package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmorales/supplysync-backend/pkg/logger"
	"github.com/rmorales/supplysync-backend/pkg/outbox"
	"github.com/rmorales/supplysync-backend/pkg/outbox/idempotency"
	"github.com/rmorales/supplysync-backend/pkg/outbox/payloads"
)

type fakeStore struct {
	keys   map[string]string
	setErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: map[string]string{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	return f.keys[key], nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = "1"
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "ss:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

type fakeCounters struct {
	counts  map[string]int64
	incrErr error
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{counts: map[string]int64{}}
}

func (f *fakeCounters) Incr(_ context.Context, key string) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeCounters) CounterKey(name string) string {
	return "ss:counter:" + name
}

func newTestConsumer(t *testing.T, store *fakeStore, counters *fakeCounters) *Consumer {
	t.Helper()
	guard, err := idempotency.NewManager(store, time.Hour)
	require.NoError(t, err)
	return &Consumer{
		guard:    guard,
		counters: counters,
		logg:     logger.New(logger.Options{ServiceName: "pricefeed-test", Output: io.Discard}),
	}
}

func encodePriceEvent(t *testing.T, eventID uuid.UUID, event payloads.PriceUpdatedEvent) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	raw, err := json.Marshal(envelope)
	require.NoError(t, err)
	return raw
}

func TestProcessCountsOnce(t *testing.T) {
	store := newFakeStore()
	counters := newFakeCounters()
	consumer := newTestConsumer(t, store, counters)

	tenantID := uuid.New()
	eventID := uuid.New()
	raw := encodePriceEvent(t, eventID, payloads.PriceUpdatedEvent{
		TenantID:         tenantID,
		ConnectionPairID: uuid.New(),
		SKU:              "SKU-1",
	})

	assert.True(t, consumer.Process(context.Background(), "m1", raw))
	assert.True(t, consumer.Process(context.Background(), "m2", raw))

	key := counters.CounterKey("price_updates:" + tenantID.String())
	assert.Equal(t, int64(1), counters.counts[key])
}

func TestProcessAcksPoisonPayload(t *testing.T) {
	consumer := newTestConsumer(t, newFakeStore(), newFakeCounters())

	assert.True(t, consumer.Process(context.Background(), "m1", []byte("not-json")))

	envelope := outbox.PayloadEnvelope{Version: 1, EventID: "not-a-uuid", Data: json.RawMessage(`{}`)}
	raw, err := json.Marshal(envelope)
	require.NoError(t, err)
	assert.True(t, consumer.Process(context.Background(), "m2", raw))
}

func TestProcessNacksAndReleasesOnCounterFailure(t *testing.T) {
	store := newFakeStore()
	counters := newFakeCounters()
	counters.incrErr = errors.New("redis down")
	consumer := newTestConsumer(t, store, counters)

	tenantID := uuid.New()
	raw := encodePriceEvent(t, uuid.New(), payloads.PriceUpdatedEvent{
		TenantID: tenantID,
		SKU:      "SKU-1",
	})

	assert.False(t, consumer.Process(context.Background(), "m1", raw))

	// The processed mark was released, so the redelivery lands.
	counters.incrErr = nil
	assert.True(t, consumer.Process(context.Background(), "m2", raw))
	key := counters.CounterKey("price_updates:" + tenantID.String())
	assert.Equal(t, int64(1), counters.counts[key])
}
