package pairs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmorales/supplysync-backend/internal/repo"
	"github.com/rmorales/supplysync-backend/pkg/db/models"
)

// Repository reads and writes connection pair rows, always tenant-filtered.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, pair *models.ConnectionPair) error {
	return r.DB(ctx).Create(pair).Error
}

func (r *Repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ConnectionPair, error) {
	var pair models.ConnectionPair
	err := r.DB(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&pair).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pair, nil
}

func (r *Repository) FindByScopeKey(ctx context.Context, tenantID, supplierID uuid.UUID, destination string) (*models.ConnectionPair, error) {
	var pair models.ConnectionPair
	err := r.DB(ctx).
		Where("tenant_id = ? AND supplier_id = ? AND destination = ?", tenantID, supplierID, destination).
		First(&pair).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pair, nil
}

func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.ConnectionPair, error) {
	var rows []models.ConnectionPair
	err := r.DB(ctx).Where("tenant_id = ?", tenantID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) ListEnabledByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.ConnectionPair, error) {
	var rows []models.ConnectionPair
	err := r.DB(ctx).
		Where("tenant_id = ? AND enabled = ?", tenantID, true).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) CountEnabledBySupplier(ctx context.Context, tenantID, supplierID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.ConnectionPair{}).
		Where("tenant_id = ? AND supplier_id = ? AND enabled = ?", tenantID, supplierID, true).
		Count(&count).Error
	return count, err
}

func (r *Repository) Update(ctx context.Context, pair *models.ConnectionPair) error {
	return r.DB(ctx).Save(pair).Error
}

func (r *Repository) UpdateTx(tx *gorm.DB, pair *models.ConnectionPair) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Save(pair).Error
}

func (r *Repository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.DB(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.ConnectionPair{}).Error
}
