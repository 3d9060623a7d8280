package suppliers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmorales/supplysync-backend/internal/repo"
	"github.com/rmorales/supplysync-backend/pkg/db/models"
)

// Repository reads and writes supplier rows. Every query is tenant-filtered;
// callers resolve the tenant through the scope before touching the repo.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, supplier *models.Supplier) error {
	return r.DB(ctx).Create(supplier).Error
}

func (r *Repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	err := r.DB(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&supplier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &supplier, nil
}

func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Supplier, error) {
	var rows []models.Supplier
	err := r.DB(ctx).Where("tenant_id = ?", tenantID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) Update(ctx context.Context, supplier *models.Supplier) error {
	return r.DB(ctx).Save(supplier).Error
}

func (r *Repository) UpdateTx(tx *gorm.DB, supplier *models.Supplier) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Save(supplier).Error
}

func (r *Repository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.DB(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.Supplier{}).Error
}
