package tenants

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmorales/supplysync-backend/internal/tenantctx"
	"github.com/rmorales/supplysync-backend/pkg/config"
	"github.com/rmorales/supplysync-backend/pkg/db"
	"github.com/rmorales/supplysync-backend/pkg/db/models"
	"github.com/rmorales/supplysync-backend/pkg/enums"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
)

func openTestClient(t *testing.T) *db.Client {
	t.Helper()
	dsn := fmt.Sprintf("file:tenants_%s?mode=memory&cache=shared", uuid.NewString())
	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(&models.Tenant{}))
	return client
}

func newTestService(t *testing.T, client *db.Client) Service {
	t.Helper()
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)
	return svc
}

func TestCreateGetListRoundTrip(t *testing.T) {
	client := openTestClient(t)
	svc := newTestService(t, client)
	scope := tenantctx.NewSuperAdmin(uuid.New())

	email := "ops@acme.test"
	created, err := svc.Create(context.Background(), scope, CreateInput{
		Name:         "  Acme  ",
		ContactEmail: &email,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "Acme", created.Name)
	assert.True(t, created.IsActive)

	fetched, err := svc.Get(context.Background(), scope, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	require.NotNil(t, fetched.ContactEmail)
	assert.Equal(t, email, *fetched.ContactEmail)

	listed, err := svc.ListActive(context.Background(), scope)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestListActiveSkipsInactiveTenants(t *testing.T) {
	client := openTestClient(t)
	svc := newTestService(t, client)
	scope := tenantctx.NewSuperAdmin(uuid.New())

	active := models.Tenant{ID: uuid.New(), Name: "Active", IsActive: true}
	dormant := models.Tenant{ID: uuid.New(), Name: "Dormant", IsActive: false}
	require.NoError(t, client.DB().Create(&active).Error)
	require.NoError(t, client.DB().Create(&dormant).Error)

	listed, err := svc.ListActive(context.Background(), scope)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, active.ID, listed[0].ID)
}

func TestTenantOpsRequireSuperAdmin(t *testing.T) {
	client := openTestClient(t)
	svc := newTestService(t, client)
	scope := tenantctx.NewTenantScope(uuid.New(), enums.ActorRoleTenantAdmin, uuid.New())

	_, err := svc.Create(context.Background(), scope, CreateInput{Name: "Acme"})
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeForbidden, coded.Code())

	_, err = svc.Get(context.Background(), scope, uuid.New())
	coded = pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeForbidden, coded.Code())

	_, err = svc.ListActive(context.Background(), scope)
	coded = pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeForbidden, coded.Code())
}

func TestCreateRejectsBlankName(t *testing.T) {
	client := openTestClient(t)
	svc := newTestService(t, client)
	scope := tenantctx.NewSuperAdmin(uuid.New())

	_, err := svc.Create(context.Background(), scope, CreateInput{Name: "   "})
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
}

func TestGetValidatesID(t *testing.T) {
	client := openTestClient(t)
	svc := newTestService(t, client)
	scope := tenantctx.NewSuperAdmin(uuid.New())

	_, err := svc.Get(context.Background(), scope, uuid.Nil)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())

	_, err = svc.Get(context.Background(), scope, uuid.New())
	coded = pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeNotFound, coded.Code())
}
