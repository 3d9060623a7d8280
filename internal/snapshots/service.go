package snapshots

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmorales/supplysync-backend/internal/tenantctx"
	"github.com/rmorales/supplysync-backend/pkg/db/models"
	"github.com/rmorales/supplysync-backend/pkg/enums"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
	"github.com/rmorales/supplysync-backend/pkg/pagination"
)

// Service exposes read access to price snapshots.
type Service interface {
	ListByPair(ctx context.Context, scope tenantctx.Scope, tenantID *uuid.UUID, pairID uuid.UUID, params pagination.Params) (*ListResult, error)
}

// SnapshotDTO is the external representation of a price snapshot.
type SnapshotDTO struct {
	ID               uuid.UUID       `json:"id"`
	TenantID         uuid.UUID       `json:"tenant_id"`
	ConnectionPairID uuid.UUID       `json:"connection_pair_id"`
	SKU              string          `json:"sku"`
	SupplierPrice    decimal.Decimal `json:"supplier_price"`
	Price            decimal.Decimal `json:"price"`
	Quantity         int             `json:"quantity"`
	Currency         enums.Currency  `json:"currency"`
	SyncVersion      int64           `json:"sync_version"`
	SyncedAt         time.Time       `json:"synced_at"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ListResult is one page of snapshots plus the cursor for the next.
type ListResult struct {
	Snapshots  []SnapshotDTO `json:"snapshots"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type service struct {
	repo *Repository
}

// NewService constructs a snapshot read service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("snapshot repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListByPair(ctx context.Context, scope tenantctx.Scope, tenantID *uuid.UUID, pairID uuid.UUID, params pagination.Params) (*ListResult, error) {
	resolved, err := scope.ResolveTenant(tenantID)
	if err != nil {
		return nil, err
	}
	if pairID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pair id is required")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListByPair(ctx, resolved, pairID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing snapshots")
	}

	page, more := pagination.Page(rows, params.Limit)
	result := &ListResult{Snapshots: make([]SnapshotDTO, 0, len(page))}
	for _, row := range page {
		result.Snapshots = append(result.Snapshots, toDTO(row))
	}
	if more && len(page) > 0 {
		last := page[len(page)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return result, nil
}

func toDTO(snapshot models.PriceSnapshot) SnapshotDTO {
	return SnapshotDTO{
		ID:               snapshot.ID,
		TenantID:         snapshot.TenantID,
		ConnectionPairID: snapshot.ConnectionPairID,
		SKU:              snapshot.SKU,
		SupplierPrice:    snapshot.SupplierPrice,
		Price:            snapshot.Price,
		Quantity:         snapshot.Quantity,
		Currency:         snapshot.Currency,
		SyncVersion:      snapshot.SyncVersion,
		SyncedAt:         snapshot.SyncedAt,
		CreatedAt:        snapshot.CreatedAt,
	}
}
