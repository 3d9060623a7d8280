package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmorales/supplysync-backend/pkg/enums"
)

// PriceUpdatedEvent is emitted after a sync writes a new price snapshot.
type PriceUpdatedEvent struct {
	TenantID         uuid.UUID       `json:"tenant_id"`
	ConnectionPairID uuid.UUID       `json:"connection_pair_id"`
	SKU              string          `json:"sku"`
	SupplierPrice    decimal.Decimal `json:"supplier_price"`
	Price            decimal.Decimal `json:"price"`
	Quantity         int             `json:"quantity"`
	Currency         enums.Currency  `json:"currency"`
	SyncedAt         time.Time       `json:"synced_at"`
}

// SupplierValidatedEvent is emitted when a connection test first succeeds.
type SupplierValidatedEvent struct {
	TenantID   uuid.UUID            `json:"tenant_id"`
	SupplierID uuid.UUID            `json:"supplier_id"`
	ClientType string               `json:"client_type"`
	Status     enums.SupplierStatus `json:"status"`
	ProbedAt   time.Time            `json:"probed_at"`
}

// ConnectionPairDisabledEvent signals a pair was taken out of sync rotation.
type ConnectionPairDisabledEvent struct {
	TenantID         uuid.UUID `json:"tenant_id"`
	ConnectionPairID uuid.UUID `json:"connection_pair_id"`
	SupplierID       uuid.UUID `json:"supplier_id"`
	Destination      string    `json:"destination"`
	DisabledAt       time.Time `json:"disabled_at"`
	Reason           string    `json:"reason,omitempty"`
}
