package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rmorales/supplysync-backend/pkg/enums"
)

// Product is the supplier-side view of a catalog item.
type Product struct {
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Currency enums.Currency  `json:"currency"`
}

// Order is the supplier-side view of a placed order.
type Order struct {
	ID        string      `json:"id"`
	Status    string      `json:"status"`
	Items     []OrderItem `json:"items"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// OrderItem is a single line of a supplier order.
type OrderItem struct {
	SKU      string          `json:"sku"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Config carries everything a client needs to talk to one supplier.
// Token is the resolved credential value; callers obtain it from the
// supplier's credential reference and never persist it.
type Config struct {
	EndpointURL string
	Token       string
	Timeout     time.Duration
	UserAgent   string
}

// Client is the capability surface every supplier integration provides.
// Initialize must be called before any other operation; calls made earlier
// fail with CodeNotInitialized.
type Client interface {
	Initialize(ctx context.Context, cfg Config) error
	Probe(ctx context.Context) error

	GetProduct(ctx context.Context, sku string) (*Product, error)
	GetProducts(ctx context.Context, skus []string) ([]Product, error)
	UpdateProduct(ctx context.Context, product Product) error
	UpdateInventory(ctx context.Context, sku string, quantity int) error
	UpdatePrice(ctx context.Context, sku string, price decimal.Decimal) error

	GetOrder(ctx context.Context, orderID string) (*Order, error)
	GetOrders(ctx context.Context, since time.Time) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status string) error
}
