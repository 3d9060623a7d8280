package tenantctx

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmorales/supplysync-backend/pkg/enums"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
)

func TestSuperAdminAccessesAnyTenant(t *testing.T) {
	scope := NewSuperAdmin(uuid.New())

	assert.True(t, scope.CanAccess(uuid.New()))
	assert.NoError(t, scope.Authorize(uuid.New()))
}

func TestTenantScopePinnedToOwnTenant(t *testing.T) {
	tenantID := uuid.New()
	scope := NewTenantScope(uuid.New(), enums.ActorRoleTenantAdmin, tenantID)

	assert.NoError(t, scope.Authorize(tenantID))

	err := scope.Authorize(uuid.New())
	require.Error(t, err)
	var coded *pkgerrors.Error
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, pkgerrors.CodeForbidden, coded.Code())
}

func TestAuthorizeRejectsNilTenant(t *testing.T) {
	scope := NewSuperAdmin(uuid.New())

	err := scope.Authorize(uuid.Nil)
	require.Error(t, err)
	var coded *pkgerrors.Error
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
}

func TestResolveTenant(t *testing.T) {
	tenantID := uuid.New()
	other := uuid.New()

	t.Run("pinned scope ignores absent request", func(t *testing.T) {
		scope := NewTenantScope(uuid.New(), enums.ActorRoleOperator, tenantID)
		got, err := scope.ResolveTenant(nil)
		require.NoError(t, err)
		assert.Equal(t, tenantID, got)
	})

	t.Run("pinned scope rejects foreign tenant", func(t *testing.T) {
		scope := NewTenantScope(uuid.New(), enums.ActorRoleOperator, tenantID)
		_, err := scope.ResolveTenant(&other)
		require.Error(t, err)
	})

	t.Run("super admin must name a tenant", func(t *testing.T) {
		scope := NewSuperAdmin(uuid.New())
		_, err := scope.ResolveTenant(nil)
		require.Error(t, err)

		got, err := scope.ResolveTenant(&other)
		require.NoError(t, err)
		assert.Equal(t, other, got)
	})
}

func TestContextRoundTrip(t *testing.T) {
	scope := NewTenantScope(uuid.New(), enums.ActorRoleTenantAdmin, uuid.New())

	ctx := WithScope(context.Background(), scope)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, scope, got)

	_, err := Require(context.Background())
	require.Error(t, err)
}

func TestTenantIDAccessor(t *testing.T) {
	tenantID := uuid.New()
	pinned := NewTenantScope(uuid.New(), enums.ActorRoleOperator, tenantID)
	got, ok := pinned.TenantID()
	require.True(t, ok)
	assert.Equal(t, tenantID, got)

	_, ok = NewSuperAdmin(uuid.New()).TenantID()
	assert.False(t, ok)
}
