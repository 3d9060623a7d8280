package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rmorales/supplysync-backend/pkg/enums"
)

// PricingRule is one ordered transformation in a tenant's pricing chain.
// A nil ConnectionPairID makes the rule tenant-wide; otherwise it applies
// only to that pair. Amount is the rule parameter: percent for markups,
// currency amount for fixed adjustments and clamps, unused for round rules
// (RoundPlaces carries the precision instead).
type PricingRule struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TenantID         uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;index"`
	ConnectionPairID *uuid.UUID      `gorm:"column:connection_pair_id;type:uuid;index"`
	RuleType         enums.RuleType  `gorm:"column:rule_type;not null"`
	Priority         int             `gorm:"column:priority;not null"`
	Amount           decimal.Decimal `gorm:"column:amount;type:numeric(18,6);not null"`
	RoundPlaces      *int32          `gorm:"column:round_places"`
	Active           bool            `gorm:"column:active;not null;default:true"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *PricingRule) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
