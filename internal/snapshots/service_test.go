package snapshots

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmorales/supplysync-backend/internal/tenantctx"
	"github.com/rmorales/supplysync-backend/pkg/config"
	"github.com/rmorales/supplysync-backend/pkg/db"
	"github.com/rmorales/supplysync-backend/pkg/db/models"
	"github.com/rmorales/supplysync-backend/pkg/enums"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
	"github.com/rmorales/supplysync-backend/pkg/pagination"
)

func openTestClient(t *testing.T) *db.Client {
	t.Helper()
	dsn := fmt.Sprintf("file:snapshots_%s?mode=memory&cache=shared", uuid.NewString())
	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(&models.PriceSnapshot{}))
	return client
}

func seedSnapshots(t *testing.T, client *db.Client, tenantID, pairID uuid.UUID, count int) []models.PriceSnapshot {
	t.Helper()
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	rows := make([]models.PriceSnapshot, 0, count)
	for i := 0; i < count; i++ {
		row := models.PriceSnapshot{
			ID:               uuid.New(),
			TenantID:         tenantID,
			ConnectionPairID: pairID,
			SKU:              fmt.Sprintf("SKU-%03d", i),
			SupplierPrice:    decimal.RequireFromString("10.00"),
			Price:            decimal.RequireFromString("12.00"),
			Quantity:         5,
			Currency:         enums.CurrencyUSD,
			SyncVersion:      1,
			SyncedAt:         base.Add(time.Duration(i) * time.Minute),
			CreatedAt:        base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, client.DB().Create(&row).Error)
		rows = append(rows, row)
	}
	return rows
}

func TestListByPairPagesNewestFirst(t *testing.T) {
	client := openTestClient(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)

	tenantID := uuid.New()
	pairID := uuid.New()
	seeded := seedSnapshots(t, client, tenantID, pairID, 5)
	scope := tenantctx.NewTenantScope(uuid.New(), enums.ActorRoleTenantAdmin, tenantID)

	first, err := svc.ListByPair(context.Background(), scope, nil, pairID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Snapshots, 2)
	assert.Equal(t, seeded[4].SKU, first.Snapshots[0].SKU)
	assert.Equal(t, seeded[3].SKU, first.Snapshots[1].SKU)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListByPair(context.Background(), scope, nil, pairID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Snapshots, 2)
	assert.Equal(t, seeded[2].SKU, second.Snapshots[0].SKU)
	assert.Equal(t, seeded[1].SKU, second.Snapshots[1].SKU)
	require.NotEmpty(t, second.NextCursor)

	last, err := svc.ListByPair(context.Background(), scope, nil, pairID, pagination.Params{Limit: 2, Cursor: second.NextCursor})
	require.NoError(t, err)
	require.Len(t, last.Snapshots, 1)
	assert.Equal(t, seeded[0].SKU, last.Snapshots[0].SKU)
	assert.Empty(t, last.NextCursor)
}

func TestListByPairIsTenantScoped(t *testing.T) {
	client := openTestClient(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)

	tenantID := uuid.New()
	pairID := uuid.New()
	seedSnapshots(t, client, tenantID, pairID, 3)

	otherScope := tenantctx.NewTenantScope(uuid.New(), enums.ActorRoleTenantAdmin, uuid.New())
	page, err := svc.ListByPair(context.Background(), otherScope, nil, pairID, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Snapshots)

	foreign := tenantID
	_, err = svc.ListByPair(context.Background(), otherScope, &foreign, pairID, pagination.Params{Limit: 10})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeForbidden, coded.Code())
}

func TestListByPairSuperAdminNamesTenant(t *testing.T) {
	client := openTestClient(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)

	tenantID := uuid.New()
	pairID := uuid.New()
	seedSnapshots(t, client, tenantID, pairID, 2)

	admin := tenantctx.NewSuperAdmin(uuid.New())
	page, err := svc.ListByPair(context.Background(), admin, &tenantID, pairID, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Snapshots, 2)

	_, err = svc.ListByPair(context.Background(), admin, nil, pairID, pagination.Params{Limit: 10})
	require.Error(t, err)
}

func TestListByPairRejectsBadInput(t *testing.T) {
	client := openTestClient(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)

	scope := tenantctx.NewTenantScope(uuid.New(), enums.ActorRoleTenantAdmin, uuid.New())

	_, err = svc.ListByPair(context.Background(), scope, nil, uuid.Nil, pagination.Params{Limit: 10})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())

	_, err = svc.ListByPair(context.Background(), scope, nil, uuid.New(), pagination.Params{Limit: 10, Cursor: "not-a-cursor"})
	require.Error(t, err)
}
