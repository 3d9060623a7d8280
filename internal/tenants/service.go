package tenants

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rmorales/supplysync-backend/internal/tenantctx"
	"github.com/rmorales/supplysync-backend/pkg/db/models"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
)

// Service exposes tenant administration. All operations require the
// super admin role; tenant actors manage resources, not tenants.
type Service interface {
	Create(ctx context.Context, scope tenantctx.Scope, input CreateInput) (*TenantDTO, error)
	Get(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) (*TenantDTO, error)
	ListActive(ctx context.Context, scope tenantctx.Scope) ([]TenantDTO, error)
}

// CreateInput holds the validated payload to provision a tenant.
type CreateInput struct {
	Name         string
	ContactEmail *string
}

// TenantDTO is the external representation of a tenant.
type TenantDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ContactEmail *string   `json:"contact_email,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type service struct {
	repo *Repository
}

// NewService constructs a tenant administration service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tenant repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, scope tenantctx.Scope, input CreateInput) (*TenantDTO, error) {
	if !scope.IsSuperAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "super admin role required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant name is required")
	}

	tenant := models.Tenant{
		Name:         name,
		ContactEmail: input.ContactEmail,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, &tenant); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating tenant")
	}
	dto := toDTO(tenant)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) (*TenantDTO, error) {
	if !scope.IsSuperAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "super admin role required")
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading tenant")
	}
	if tenant == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	dto := toDTO(*tenant)
	return &dto, nil
}

func (s *service) ListActive(ctx context.Context, scope tenantctx.Scope) ([]TenantDTO, error) {
	if !scope.IsSuperAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "super admin role required")
	}
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing tenants")
	}
	dtos := make([]TenantDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toDTO(row))
	}
	return dtos, nil
}

func toDTO(tenant models.Tenant) TenantDTO {
	return TenantDTO{
		ID:           tenant.ID,
		Name:         tenant.Name,
		ContactEmail: tenant.ContactEmail,
		IsActive:     tenant.IsActive,
		CreatedAt:    tenant.CreatedAt,
		UpdatedAt:    tenant.UpdatedAt,
	}
}
