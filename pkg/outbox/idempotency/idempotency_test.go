package idempotency

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStore struct {
	setNXResult bool
	setNXError  error
	lastKey     string
	lastTTL     time.Duration
	lastDeleted string
}

func (f *fakeStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	return f.setNXResult, f.setNXError
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "ss:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) > 0 {
		f.lastDeleted = keys[0]
	}
	return nil
}

func TestCheckAndMarkProcessedFirstSeen(t *testing.T) {
	store := &fakeStore{setNXResult: true}
	mgr, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	eventID := uuid.New()
	processed, err := mgr.CheckAndMarkProcessed(context.Background(), "price-consumer", eventID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed {
		t.Fatal("first sighting should not be processed")
	}
	if !strings.Contains(store.lastKey, "evt:processed:price-consumer") {
		t.Fatalf("unexpected key %q", store.lastKey)
	}
	if !strings.Contains(store.lastKey, eventID.String()) {
		t.Fatalf("key missing event id: %q", store.lastKey)
	}
	if store.lastTTL != time.Hour {
		t.Fatalf("unexpected ttl %s", store.lastTTL)
	}
}

func TestCheckAndMarkProcessedDuplicate(t *testing.T) {
	store := &fakeStore{setNXResult: false}
	mgr, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	processed, err := mgr.CheckAndMarkProcessed(context.Background(), "price-consumer", uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !processed {
		t.Fatal("duplicate sighting should report processed")
	}
}

func TestCheckAndMarkProcessedStoreError(t *testing.T) {
	store := &fakeStore{setNXError: errors.New("boom")}
	mgr, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	if _, err := mgr.CheckAndMarkProcessed(context.Background(), "price-consumer", uuid.New()); err == nil {
		t.Fatal("expected store error")
	}
}

func TestProcessedKeyValidation(t *testing.T) {
	store := &fakeStore{setNXResult: true}
	mgr, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	if _, err := mgr.CheckAndMarkProcessed(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("expected consumer validation error")
	}
	if _, err := mgr.CheckAndMarkProcessed(context.Background(), "price-consumer", uuid.Nil); err == nil {
		t.Fatal("expected event id validation error")
	}
}

func TestDeleteRemovesProcessedMark(t *testing.T) {
	store := &fakeStore{setNXResult: true}
	mgr, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	eventID := uuid.New()
	if err := mgr.Delete(context.Background(), "price-consumer", eventID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(store.lastDeleted, eventID.String()) {
		t.Fatalf("unexpected deleted key %q", store.lastDeleted)
	}
}
