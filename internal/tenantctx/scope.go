package tenantctx

import (
	"context"

	"github.com/google/uuid"

	"github.com/rmorales/supplysync-backend/pkg/enums"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
)

// Scope carries the acting identity for every tenant-scoped operation.
// A super admin scope has no tenant and may address any of them; all
// other roles are pinned to exactly one.
type Scope struct {
	actorID  uuid.UUID
	role     enums.ActorRole
	tenantID *uuid.UUID
}

// NewSuperAdmin builds a scope that can act across tenants.
func NewSuperAdmin(actorID uuid.UUID) Scope {
	return Scope{actorID: actorID, role: enums.ActorRoleSuperAdmin}
}

// NewTenantScope builds a scope pinned to a single tenant.
func NewTenantScope(actorID uuid.UUID, role enums.ActorRole, tenantID uuid.UUID) Scope {
	return Scope{actorID: actorID, role: role, tenantID: &tenantID}
}

// ActorID returns the acting user's identifier.
func (s Scope) ActorID() uuid.UUID {
	return s.actorID
}

// Role returns the acting user's role.
func (s Scope) Role() enums.ActorRole {
	return s.role
}

// TenantID returns the pinned tenant, reporting false for super admins.
func (s Scope) TenantID() (uuid.UUID, bool) {
	if s.tenantID == nil {
		return uuid.Nil, false
	}
	return *s.tenantID, true
}

// IsSuperAdmin reports whether the scope may cross tenant boundaries.
func (s Scope) IsSuperAdmin() bool {
	return s.role == enums.ActorRoleSuperAdmin
}

// CanAccess reports whether the scope may touch the given tenant's data.
func (s Scope) CanAccess(tenantID uuid.UUID) bool {
	if s.IsSuperAdmin() {
		return true
	}
	return s.tenantID != nil && *s.tenantID == tenantID
}

// Authorize returns a FORBIDDEN error when the scope cannot act on the tenant.
func (s Scope) Authorize(tenantID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if !s.CanAccess(tenantID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "operation not permitted for this tenant")
	}
	return nil
}

// ResolveTenant returns the effective tenant for the operation. Tenant-pinned
// scopes always resolve to their own tenant; super admins must name one.
func (s Scope) ResolveTenant(requested *uuid.UUID) (uuid.UUID, error) {
	if s.tenantID != nil {
		if requested != nil && *requested != *s.tenantID {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "operation not permitted for this tenant")
		}
		return *s.tenantID, nil
	}
	if s.IsSuperAdmin() {
		if requested == nil || *requested == uuid.Nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required for cross-tenant actors")
		}
		return *requested, nil
	}
	return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "tenant context missing")
}

type ctxKey struct{}

// WithScope attaches the scope to the context.
func WithScope(ctx context.Context, scope Scope) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, scope)
}

// FromContext extracts the scope, reporting whether one was attached.
func FromContext(ctx context.Context) (Scope, bool) {
	if ctx == nil {
		return Scope{}, false
	}
	scope, ok := ctx.Value(ctxKey{}).(Scope)
	return scope, ok
}

// Require extracts the scope or returns a FORBIDDEN error when absent.
func Require(ctx context.Context) (Scope, error) {
	scope, ok := FromContext(ctx)
	if !ok {
		return Scope{}, pkgerrors.New(pkgerrors.CodeForbidden, "tenant context missing")
	}
	return scope, nil
}
