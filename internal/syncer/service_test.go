package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmorales/supplysync-backend/internal/gateway"
	"github.com/rmorales/supplysync-backend/internal/gateway/mock"
	"github.com/rmorales/supplysync-backend/internal/pairs"
	"github.com/rmorales/supplysync-backend/internal/pricing"
	"github.com/rmorales/supplysync-backend/internal/snapshots"
	"github.com/rmorales/supplysync-backend/internal/suppliers"
	"github.com/rmorales/supplysync-backend/internal/tenantctx"
	"github.com/rmorales/supplysync-backend/pkg/config"
	"github.com/rmorales/supplysync-backend/pkg/db"
	"github.com/rmorales/supplysync-backend/pkg/db/models"
	"github.com/rmorales/supplysync-backend/pkg/enums"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
	"github.com/rmorales/supplysync-backend/pkg/outbox"
	"github.com/rmorales/supplysync-backend/pkg/outbox/payloads"
)

// fakeLocker is an in-memory stand-in for the Redis lock.
type fakeLocker struct {
	mtx  sync.Mutex
	held map[string]string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]string)}
}

func (f *fakeLocker) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if _, exists := f.held[key]; exists {
		return false, nil
	}
	f.held[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeLocker) Del(ctx context.Context, keys ...string) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	for _, key := range keys {
		delete(f.held, key)
	}
	return nil
}

func (f *fakeLocker) SyncLockKey(tenantID, sku string) string {
	return "ss:sync_lock:" + tenantID + ":" + sku
}

func (f *fakeLocker) holdCount() int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return len(f.held)
}

type fixture struct {
	client   *db.Client
	svc      Service
	mock     *mock.Client
	locker   *fakeLocker
	tenantID uuid.UUID
	pairID   uuid.UUID
	scope    tenantctx.Scope
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:syncer_%s?mode=memory&cache=shared", uuid.NewString())
	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(
		&models.Tenant{},
		&models.Supplier{},
		&models.ConnectionPair{},
		&models.PricingRule{},
		&models.PriceSnapshot{},
		&models.OutboxEvent{},
	))

	tenant := models.Tenant{ID: uuid.New(), Name: "Acme", IsActive: true}
	require.NoError(t, client.DB().Create(&tenant).Error)
	supplier := models.Supplier{
		ID:            uuid.New(),
		TenantID:      tenant.ID,
		Name:          "Northwind",
		ClientType:    enums.SupplierClientMock,
		EndpointURL:   "https://supplier.test",
		CredentialRef: "TOKEN",
		Status:        enums.SupplierStatusActive,
	}
	require.NoError(t, client.DB().Create(&supplier).Error)
	pair := models.ConnectionPair{
		ID:          uuid.New(),
		TenantID:    tenant.ID,
		SupplierID:  supplier.ID,
		Destination: "shopify-main",
		Name:        "Northwind to Shopify",
		Enabled:     true,
		Currency:    enums.CurrencyUSD,
		TrackedSKUs: pq.StringArray{"SKU-1", "SKU-2"},
	}
	require.NoError(t, client.DB().Create(&pair).Error)

	supplierMock := mock.New()
	registry := gateway.NewRegistry()
	require.NoError(t, registry.Register(enums.SupplierClientMock, func() gateway.Client { return supplierMock }))

	pricingSvc, err := pricing.NewService(pricing.NewRepository(client.DB()))
	require.NoError(t, err)

	locker := newFakeLocker()
	emitter := outbox.NewService(outbox.NewRepository(client.DB()), nil)
	svc, err := NewService(
		client,
		pairs.NewRepository(client.DB()),
		suppliers.NewRepository(client.DB()),
		pricingSvc,
		registry,
		snapshots.NewRepository(client.DB()),
		emitter,
		locker,
		config.GatewayConfig{CallTimeout: time.Second, UserAgent: "test"},
		config.SyncConfig{LockTTL: time.Second},
		nil,
	)
	require.NoError(t, err)

	return &fixture{
		client:   client,
		svc:      svc,
		mock:     supplierMock,
		locker:   locker,
		tenantID: tenant.ID,
		pairID:   pair.ID,
		scope:    tenantctx.NewTenantScope(uuid.New(), enums.ActorRoleOperator, tenant.ID),
	}
}

func (f *fixture) addMarkupRule(t *testing.T, percent string) {
	t.Helper()
	rule := models.PricingRule{
		ID:       uuid.New(),
		TenantID: f.tenantID,
		RuleType: enums.RuleTypePercentMarkup,
		Priority: 10,
		Amount:   decimal.RequireFromString(percent),
		Active:   true,
	}
	require.NoError(t, f.client.DB().Create(&rule).Error)
}

func (f *fixture) countSnapshots(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.client.DB().Model(&models.PriceSnapshot{}).Count(&count).Error)
	return count
}

func (f *fixture) countPriceEvents(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.client.DB().Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventPriceUpdated).
		Count(&count).Error)
	return count
}

func TestApplyAndDispatchWritesSnapshotAndEvent(t *testing.T) {
	f := newFixture(t)
	f.addMarkupRule(t, "20")
	f.mock.SetProduct(gateway.Product{
		SKU:      "SKU-1",
		Name:     "Widget",
		Price:    decimal.RequireFromString("50.00"),
		Quantity: 7,
		Currency: "USD",
	})

	result, err := f.svc.ApplyAndDispatch(context.Background(), f.scope, f.pairID, "SKU-1")
	require.NoError(t, err)
	assert.True(t, result.Price.Equal(decimal.RequireFromString("60.00")), "got %s", result.Price)
	assert.True(t, result.SupplierPrice.Equal(decimal.RequireFromString("50.00")))
	assert.Equal(t, 7, result.Quantity)
	assert.Equal(t, int64(1), result.SyncVersion)

	assert.Equal(t, int64(1), f.countSnapshots(t))
	assert.Equal(t, int64(1), f.countPriceEvents(t))
	assert.Zero(t, f.locker.holdCount(), "lock should be released")
}

func TestApplyAndDispatchGatewayFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.addMarkupRule(t, "20")
	f.mock.SetProduct(gateway.Product{SKU: "SKU-1", Price: decimal.RequireFromString("50.00"), Quantity: 1})
	f.mock.FailWith = gateway.NewAPIError(gateway.CodeTimeout, "supplier timed out")

	_, err := f.svc.ApplyAndDispatch(context.Background(), f.scope, f.pairID, "SKU-1")
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeTimeout, coded.Code())

	assert.Zero(t, f.countSnapshots(t))
	assert.Zero(t, f.countPriceEvents(t))
	assert.Zero(t, f.locker.holdCount())
}

func TestApplyAndDispatchSecondRunBumpsVersion(t *testing.T) {
	f := newFixture(t)
	f.addMarkupRule(t, "20")
	f.mock.SetProduct(gateway.Product{SKU: "SKU-1", Price: decimal.RequireFromString("50.00"), Quantity: 7})

	first, err := f.svc.ApplyAndDispatch(context.Background(), f.scope, f.pairID, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), first.SyncVersion)

	f.mock.SetProduct(gateway.Product{SKU: "SKU-1", Price: decimal.RequireFromString("55.00"), Quantity: 5})
	second, err := f.svc.ApplyAndDispatch(context.Background(), f.scope, f.pairID, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.SyncVersion)
	assert.True(t, second.Price.Equal(decimal.RequireFromString("66.00")), "got %s", second.Price)

	assert.Equal(t, int64(1), f.countSnapshots(t))
	// A pending event for the snapshot is still queued, so the second run
	// coalesces instead of inserting a duplicate.
	assert.Equal(t, int64(1), f.countPriceEvents(t))
}

func TestApplyAndDispatchRefreshesPendingEventPayload(t *testing.T) {
	f := newFixture(t)
	f.addMarkupRule(t, "20")
	f.mock.SetProduct(gateway.Product{SKU: "SKU-1", Price: decimal.RequireFromString("50.00"), Quantity: 7})

	_, err := f.svc.ApplyAndDispatch(context.Background(), f.scope, f.pairID, "SKU-1")
	require.NoError(t, err)

	// The first event is still pending when the price moves again; the
	// coalesced row must deliver the newer values, not the superseded ones.
	f.mock.SetProduct(gateway.Product{SKU: "SKU-1", Price: decimal.RequireFromString("55.00"), Quantity: 5})
	_, err = f.svc.ApplyAndDispatch(context.Background(), f.scope, f.pairID, "SKU-1")
	require.NoError(t, err)

	require.Equal(t, int64(1), f.countPriceEvents(t))

	var row models.OutboxEvent
	require.NoError(t, f.client.DB().
		Where("event_type = ?", enums.EventPriceUpdated).
		First(&row).Error)
	require.Nil(t, row.PublishedAt)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	var event payloads.PriceUpdatedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &event))
	assert.True(t, event.Price.Equal(decimal.RequireFromString("66.00")), "got %s", event.Price)
	assert.True(t, event.SupplierPrice.Equal(decimal.RequireFromString("55.00")))
	assert.Equal(t, 5, event.Quantity)
}

func TestApplyAndDispatchLockHeldConflict(t *testing.T) {
	f := newFixture(t)
	f.mock.SetProduct(gateway.Product{SKU: "SKU-1", Price: decimal.RequireFromString("50.00"), Quantity: 1})

	key := f.locker.SyncLockKey(f.tenantID.String(), "SKU-1")
	held, err := f.locker.SetNX(context.Background(), key, "other-worker", time.Second)
	require.NoError(t, err)
	require.True(t, held)

	_, err = f.svc.ApplyAndDispatch(context.Background(), f.scope, f.pairID, "SKU-1")
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeConflict, coded.Code())
	assert.Zero(t, f.countSnapshots(t))
}

func TestApplyAndDispatchDisabledPair(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.client.DB().Model(&models.ConnectionPair{}).
		Where("id = ?", f.pairID).
		Update("enabled", false).Error)

	_, err := f.svc.ApplyAndDispatch(context.Background(), f.scope, f.pairID, "SKU-1")
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeStateConflict, coded.Code())
}

func TestApplyAndDispatchUntrackedSKU(t *testing.T) {
	f := newFixture(t)
	f.mock.SetProduct(gateway.Product{SKU: "SKU-9", Price: decimal.RequireFromString("10.00"), Quantity: 1})

	_, err := f.svc.ApplyAndDispatch(context.Background(), f.scope, f.pairID, "SKU-9")
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
}

func TestApplyAndDispatchNoRulesPassesPriceThrough(t *testing.T) {
	f := newFixture(t)
	f.mock.SetProduct(gateway.Product{SKU: "SKU-2", Price: decimal.RequireFromString("9.995"), Quantity: 3})

	result, err := f.svc.ApplyAndDispatch(context.Background(), f.scope, f.pairID, "SKU-2")
	require.NoError(t, err)
	assert.True(t, result.Price.Equal(decimal.RequireFromString("9.995")), "got %s", result.Price)
}
