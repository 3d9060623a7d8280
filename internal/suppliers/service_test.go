package suppliers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmorales/supplysync-backend/internal/gateway"
	"github.com/rmorales/supplysync-backend/internal/gateway/mock"
	"github.com/rmorales/supplysync-backend/internal/tenantctx"
	"github.com/rmorales/supplysync-backend/pkg/config"
	"github.com/rmorales/supplysync-backend/pkg/db"
	"github.com/rmorales/supplysync-backend/pkg/db/models"
	"github.com/rmorales/supplysync-backend/pkg/enums"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
	"github.com/rmorales/supplysync-backend/pkg/outbox"
)

type stubPairCounter struct {
	enabled int64
	err     error
}

func (s *stubPairCounter) CountEnabledBySupplier(context.Context, uuid.UUID, uuid.UUID) (int64, error) {
	return s.enabled, s.err
}

func openTestClient(t *testing.T) *db.Client {
	t.Helper()
	dsn := fmt.Sprintf("file:suppliers_%s?mode=memory&cache=shared", uuid.NewString())
	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(
		&models.Tenant{},
		&models.Supplier{},
		&models.OutboxEvent{},
	))
	return client
}

func newTestService(t *testing.T, client *db.Client, pairs *stubPairCounter) (Service, *Repository) {
	t.Helper()

	reg := gateway.NewRegistry()
	require.NoError(t, reg.Register(enums.SupplierClientMock, mock.NewGatewayClient))

	repo := NewRepository(client.DB())
	emitter := outbox.NewService(outbox.NewRepository(client.DB()), nil)

	svc, err := NewService(repo, client, pairs, reg, emitter, config.GatewayConfig{
		CallTimeout:  time.Second,
		ProbeTimeout: time.Second,
		UserAgent:    "supplysync-test",
	}, nil)
	require.NoError(t, err)
	return svc, repo
}

func seedTenant(t *testing.T, client *db.Client) uuid.UUID {
	t.Helper()
	tenant := models.Tenant{ID: uuid.New(), Name: "Acme", IsActive: true}
	require.NoError(t, client.DB().Create(&tenant).Error)
	return tenant.ID
}

func TestCreateSupplierScopedToTenant(t *testing.T) {
	client := openTestClient(t)
	svc, _ := newTestService(t, client, &stubPairCounter{})
	tenantID := seedTenant(t, client)
	scope := tenantctx.NewTenantScope(uuid.New(), enums.ActorRoleTenantAdmin, tenantID)

	dto, err := svc.Create(context.Background(), scope, CreateInput{
		Name:          "Northwind",
		ClientType:    "mock",
		EndpointURL:   "https://supplier.test",
		CredentialRef: "NORTHWIND_TOKEN",
		Capabilities:  []string{"products", "orders"},
	})
	require.NoError(t, err)
	assert.Equal(t, tenantID, dto.TenantID)
	assert.Equal(t, enums.SupplierStatusPendingValidation, dto.Status)
	assert.Equal(t, []string{"products", "orders"}, dto.Capabilities)
}

func TestCreateSupplierValidatesInput(t *testing.T) {
	client := openTestClient(t)
	svc, _ := newTestService(t, client, &stubPairCounter{})
	scope := tenantctx.NewTenantScope(uuid.New(), enums.ActorRoleTenantAdmin, seedTenant(t, client))

	_, err := svc.Create(context.Background(), scope, CreateInput{
		Name:          "Northwind",
		ClientType:    "carrier-pigeon",
		EndpointURL:   "https://supplier.test",
		CredentialRef: "TOKEN",
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())

	_, err = svc.Create(context.Background(), scope, CreateInput{
		Name:          "Northwind",
		ClientType:    "mock",
		EndpointURL:   "https://supplier.test",
		CredentialRef: "",
	})
	require.Error(t, err)
}

func TestGetSupplierCrossTenantForbidden(t *testing.T) {
	client := openTestClient(t)
	svc, _ := newTestService(t, client, &stubPairCounter{})
	ownerTenant := seedTenant(t, client)
	otherTenant := seedTenant(t, client)

	owner := tenantctx.NewTenantScope(uuid.New(), enums.ActorRoleTenantAdmin, ownerTenant)
	dto, err := svc.Create(context.Background(), owner, CreateInput{
		Name:          "Northwind",
		ClientType:    "mock",
		EndpointURL:   "https://supplier.test",
		CredentialRef: "TOKEN",
	})
	require.NoError(t, err)

	intruder := tenantctx.NewTenantScope(uuid.New(), enums.ActorRoleTenantAdmin, otherTenant)
	_, err = svc.Get(context.Background(), intruder, dto.ID)
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeNotFound, coded.Code())
}

func TestSuperAdminAccessesAnyTenantSupplier(t *testing.T) {
	client := openTestClient(t)
	svc, _ := newTestService(t, client, &stubPairCounter{})
	tenantID := seedTenant(t, client)

	owner := tenantctx.NewTenantScope(uuid.New(), enums.ActorRoleTenantAdmin, tenantID)
	dto, err := svc.Create(context.Background(), owner, CreateInput{
		Name:          "Northwind",
		ClientType:    "mock",
		EndpointURL:   "https://supplier.test",
		CredentialRef: "TOKEN",
	})
	require.NoError(t, err)

	admin := tenantctx.NewSuperAdmin(uuid.New())
	got, err := svc.Get(context.Background(), admin, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.ID, got.ID)
}

func TestDeleteSupplierBlockedByEnabledPairs(t *testing.T) {
	client := openTestClient(t)
	svc, _ := newTestService(t, client, &stubPairCounter{enabled: 2})
	tenantID := seedTenant(t, client)
	scope := tenantctx.NewTenantScope(uuid.New(), enums.ActorRoleTenantAdmin, tenantID)

	dto, err := svc.Create(context.Background(), scope, CreateInput{
		Name:          "Northwind",
		ClientType:    "mock",
		EndpointURL:   "https://supplier.test",
		CredentialRef: "TOKEN",
	})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), scope, dto.ID)
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeStateConflict, coded.Code())
}

func TestDeleteSupplierSucceedsWithoutPairs(t *testing.T) {
	client := openTestClient(t)
	svc, repo := newTestService(t, client, &stubPairCounter{})
	tenantID := seedTenant(t, client)
	scope := tenantctx.NewTenantScope(uuid.New(), enums.ActorRoleTenantAdmin, tenantID)

	dto, err := svc.Create(context.Background(), scope, CreateInput{
		Name:          "Northwind",
		ClientType:    "mock",
		EndpointURL:   "https://supplier.test",
		CredentialRef: "TOKEN",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), scope, dto.ID))

	gone, err := repo.FindByID(context.Background(), tenantID, dto.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestTestConnectionActivatesAndEmitsOnce(t *testing.T) {
	client := openTestClient(t)
	svc, _ := newTestService(t, client, &stubPairCounter{})
	tenantID := seedTenant(t, client)
	scope := tenantctx.NewTenantScope(uuid.New(), enums.ActorRoleTenantAdmin, tenantID)

	dto, err := svc.Create(context.Background(), scope, CreateInput{
		Name:          "Northwind",
		ClientType:    "mock",
		EndpointURL:   "https://supplier.test",
		CredentialRef: "TOKEN",
	})
	require.NoError(t, err)

	result, err := svc.TestConnection(context.Background(), scope, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SupplierStatusActive, result.Status)
	assert.False(t, result.ProbedAt.IsZero())

	// A repeat probe stays idempotent: still active, still one event.
	_, err = svc.TestConnection(context.Background(), scope, dto.ID)
	require.NoError(t, err)

	var count int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventSupplierValidated).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpdateEndpointResetsValidation(t *testing.T) {
	client := openTestClient(t)
	svc, _ := newTestService(t, client, &stubPairCounter{})
	tenantID := seedTenant(t, client)
	scope := tenantctx.NewTenantScope(uuid.New(), enums.ActorRoleTenantAdmin, tenantID)

	dto, err := svc.Create(context.Background(), scope, CreateInput{
		Name:          "Northwind",
		ClientType:    "mock",
		EndpointURL:   "https://supplier.test",
		CredentialRef: "TOKEN",
	})
	require.NoError(t, err)

	_, err = svc.TestConnection(context.Background(), scope, dto.ID)
	require.NoError(t, err)

	newURL := "https://supplier-v2.test"
	updated, err := svc.Update(context.Background(), scope, dto.ID, UpdateInput{EndpointURL: &newURL})
	require.NoError(t, err)
	assert.Equal(t, enums.SupplierStatusPendingValidation, updated.Status)
}
