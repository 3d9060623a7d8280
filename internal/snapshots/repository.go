package snapshots

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmorales/supplysync-backend/internal/repo"
	"github.com/rmorales/supplysync-backend/pkg/db/models"
	"github.com/rmorales/supplysync-backend/pkg/pagination"
)

// Repository reads and writes price snapshot rows.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) FindByKey(ctx context.Context, tenantID, pairID uuid.UUID, sku string) (*models.PriceSnapshot, error) {
	var snapshot models.PriceSnapshot
	err := r.DB(ctx).
		Where("tenant_id = ? AND connection_pair_id = ? AND sku = ?", tenantID, pairID, sku).
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

func (r *Repository) FindByKeyTx(tx *gorm.DB, tenantID, pairID uuid.UUID, sku string) (*models.PriceSnapshot, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	var snapshot models.PriceSnapshot
	err := tx.
		Where("tenant_id = ? AND connection_pair_id = ? AND sku = ?", tenantID, pairID, sku).
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

func (r *Repository) CreateTx(tx *gorm.DB, snapshot *models.PriceSnapshot) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(snapshot).Error
}

// UpdateGuardedTx bumps the snapshot only when the stored sync_version still
// matches the version read at the start of the sync. A zero row count means
// a concurrent sync already moved the row forward.
func (r *Repository) UpdateGuardedTx(tx *gorm.DB, snapshot *models.PriceSnapshot, expectedVersion int64) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	result := tx.Model(&models.PriceSnapshot{}).
		Where("id = ? AND sync_version = ?", snapshot.ID, expectedVersion).
		Updates(map[string]any{
			"supplier_price": snapshot.SupplierPrice,
			"price":          snapshot.Price,
			"quantity":       snapshot.Quantity,
			"currency":       snapshot.Currency,
			"sync_version":   expectedVersion + 1,
			"synced_at":      snapshot.SyncedAt,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListByPair returns a page of snapshots ordered by creation, newest first.
func (r *Repository) ListByPair(ctx context.Context, tenantID, pairID uuid.UUID, params pagination.Params) ([]models.PriceSnapshot, error) {
	query := r.DB(ctx).
		Where("tenant_id = ? AND connection_pair_id = ?", tenantID, pairID).
		Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.PriceSnapshot
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
