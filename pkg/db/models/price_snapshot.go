package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rmorales/supplysync-backend/pkg/enums"
)

// PriceSnapshot is the latest computed price/quantity state for a SKU within
// a connection pair. It is derived state: every sync recomputes it whole.
// SyncVersion guards against lost updates when two syncs race on the same key.
type PriceSnapshot struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TenantID         uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_price_snapshots_key"`
	ConnectionPairID uuid.UUID       `gorm:"column:connection_pair_id;type:uuid;not null;uniqueIndex:ux_price_snapshots_key"`
	SKU              string          `gorm:"column:sku;not null;uniqueIndex:ux_price_snapshots_key"`
	SupplierPrice    decimal.Decimal `gorm:"column:supplier_price;type:numeric(18,6);not null"`
	Price            decimal.Decimal `gorm:"column:price;type:numeric(18,6);not null"`
	Quantity         int             `gorm:"column:quantity;not null"`
	Currency         enums.Currency  `gorm:"column:currency;not null;default:'USD'"`
	SyncVersion      int64           `gorm:"column:sync_version;not null;default:0"`
	SyncedAt         time.Time       `gorm:"column:synced_at;not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *PriceSnapshot) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
