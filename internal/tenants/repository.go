package tenants

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmorales/supplysync-backend/internal/repo"
	"github.com/rmorales/supplysync-backend/pkg/db/models"
)

// Repository reads and writes tenant rows.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.DB(ctx).Where("id = ?", id).First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

func (r *Repository) ListActive(ctx context.Context) ([]models.Tenant, error) {
	var rows []models.Tenant
	err := r.DB(ctx).Where("is_active = ?", true).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) Create(ctx context.Context, tenant *models.Tenant) error {
	return r.DB(ctx).Create(tenant).Error
}
