package pricing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmorales/supplysync-backend/internal/repo"
	"github.com/rmorales/supplysync-backend/pkg/db/models"
)

// Repository reads and writes pricing rule rows.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, rule *models.PricingRule) error {
	return r.DB(ctx).Create(rule).Error
}

func (r *Repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.PricingRule, error) {
	var rule models.PricingRule
	err := r.DB(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.PricingRule, error) {
	var rows []models.PricingRule
	err := r.DB(ctx).Where("tenant_id = ?", tenantID).
		Order("priority ASC").Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// ListForScope returns the rules that apply to a pair: tenant-wide rules
// plus the pair's own.
func (r *Repository) ListForScope(ctx context.Context, tenantID, pairID uuid.UUID) ([]models.PricingRule, error) {
	var rows []models.PricingRule
	err := r.DB(ctx).
		Where("tenant_id = ? AND (connection_pair_id IS NULL OR connection_pair_id = ?)", tenantID, pairID).
		Order("priority ASC").Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) Update(ctx context.Context, rule *models.PricingRule) error {
	return r.DB(ctx).Save(rule).Error
}

func (r *Repository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.DB(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.PricingRule{}).Error
}
