package redis

import (
	"testing"

	"github.com/rmorales/supplysync-backend/pkg/config"
)

func TestSyncLockKeyNamespacing(t *testing.T) {
	t.Parallel()

	c := &Client{}
	got := c.SyncLockKey("tenant-1", "SKU-9")
	want := "ss:sync_lock:tenant-1:SKU-9"
	if got != want {
		t.Fatalf("unexpected key: got %s want %s", got, want)
	}
}

func TestIdempotencyKeySkipsEmptyParts(t *testing.T) {
	t.Parallel()

	c := &Client{}
	got := c.IdempotencyKey("", "abc")
	want := "ss:idempotency:abc"
	if got != want {
		t.Fatalf("unexpected key: got %s want %s", got, want)
	}
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	t.Parallel()

	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when neither URL nor address set")
	}
}

func TestOptionsFromConfigAddressFallback(t *testing.T) {
	t.Parallel()

	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 3, PoolSize: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 3 || opts.PoolSize != 20 {
		t.Fatalf("options not populated from config: %+v", opts)
	}
}
