package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/rmorales/supplysync-backend/pkg/enums"
)

// ConnectionPair links one supplier catalog to one destination sales channel.
// (tenant_id, supplier_id, destination) is unique; the index name matters
// because the registry maps its violation to a duplicate-pair conflict.
type ConnectionPair struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	TenantID    uuid.UUID      `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_connection_pairs_scope"`
	SupplierID  uuid.UUID      `gorm:"column:supplier_id;type:uuid;not null;uniqueIndex:ux_connection_pairs_scope"`
	Destination string         `gorm:"column:destination;not null;uniqueIndex:ux_connection_pairs_scope"`
	Name        string         `gorm:"column:name;not null"`
	Description *string        `gorm:"column:description"`
	Enabled     bool           `gorm:"column:enabled;not null;default:true"`
	Currency    enums.Currency `gorm:"column:currency;not null;default:'USD'"`
	TrackedSKUs pq.StringArray `gorm:"column:tracked_skus;type:text[]"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *ConnectionPair) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
