package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/rmorales/supplysync-backend/pkg/enums"
)

// Supplier is an external product source owned by a tenant. CredentialRef
// names the secret holding the API credential; the value itself is never
// stored or logged.
type Supplier struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	TenantID      uuid.UUID                `gorm:"column:tenant_id;type:uuid;not null;index"`
	Name          string                   `gorm:"column:name;not null"`
	ClientType    enums.SupplierClientType `gorm:"column:client_type;not null"`
	EndpointURL   string                   `gorm:"column:endpoint_url;not null"`
	CredentialRef string                   `gorm:"column:credential_ref;not null"`
	Capabilities  pq.StringArray           `gorm:"column:capabilities;type:text[]"`
	Status        enums.SupplierStatus     `gorm:"column:status;not null;default:'pending_validation'"`
	LastProbeAt   *time.Time               `gorm:"column:last_probe_at"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Supplier) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
