package mock

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rmorales/supplysync-backend/internal/gateway"
)

// Client is an in-memory supplier used by tests and local development.
// Seed products with SetProduct; errors can be injected per operation.
type Client struct {
	mtx         sync.RWMutex
	initialized bool
	products    map[string]gateway.Product
	orders      map[string]gateway.Order

	// FailWith, when set, is returned from every capability call.
	FailWith *gateway.APIError
	// ProbeErr, when set, is returned from Probe only.
	ProbeErr *gateway.APIError
}

// New returns an empty mock supplier.
func New() *Client {
	return &Client{
		products: make(map[string]gateway.Product),
		orders:   make(map[string]gateway.Order),
	}
}

// NewGatewayClient adapts New to the registry constructor shape.
func NewGatewayClient() gateway.Client {
	return New()
}

// SetProduct seeds or replaces a product.
func (c *Client) SetProduct(product gateway.Product) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.products[product.SKU] = product
}

// SetOrder seeds or replaces an order.
func (c *Client) SetOrder(order gateway.Order) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.orders[order.ID] = order
}

func (c *Client) Initialize(ctx context.Context, cfg gateway.Config) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.initialized = true
	return nil
}

func (c *Client) Probe(ctx context.Context) error {
	if err := c.guard(); err != nil {
		return err
	}
	if c.ProbeErr != nil {
		return c.ProbeErr
	}
	return nil
}

func (c *Client) GetProduct(ctx context.Context, sku string) (*gateway.Product, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	product, ok := c.products[sku]
	if !ok {
		return nil, gateway.NewAPIError(gateway.CodeUpstreamError, "product not found: "+sku)
	}
	return &product, nil
}

func (c *Client) GetProducts(ctx context.Context, skus []string) ([]gateway.Product, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	out := make([]gateway.Product, 0, len(skus))
	for _, sku := range skus {
		if product, ok := c.products[sku]; ok {
			out = append(out, product)
		}
	}
	return out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, product gateway.Product) error {
	if err := c.guard(); err != nil {
		return err
	}
	c.SetProduct(product)
	return nil
}

func (c *Client) UpdateInventory(ctx context.Context, sku string, quantity int) error {
	if err := c.guard(); err != nil {
		return err
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	product, ok := c.products[sku]
	if !ok {
		return gateway.NewAPIError(gateway.CodeUpstreamError, "product not found: "+sku)
	}
	product.Quantity = quantity
	c.products[sku] = product
	return nil
}

func (c *Client) UpdatePrice(ctx context.Context, sku string, price decimal.Decimal) error {
	if err := c.guard(); err != nil {
		return err
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	product, ok := c.products[sku]
	if !ok {
		return gateway.NewAPIError(gateway.CodeUpstreamError, "product not found: "+sku)
	}
	product.Price = price
	c.products[sku] = product
	return nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*gateway.Order, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	order, ok := c.orders[orderID]
	if !ok {
		return nil, gateway.NewAPIError(gateway.CodeUpstreamError, "order not found: "+orderID)
	}
	return &order, nil
}

func (c *Client) GetOrders(ctx context.Context, since time.Time) ([]gateway.Order, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	out := make([]gateway.Order, 0, len(c.orders))
	for _, order := range c.orders {
		if since.IsZero() || order.UpdatedAt.After(since) {
			out = append(out, order)
		}
	}
	return out, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status string) error {
	if err := c.guard(); err != nil {
		return err
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	order, ok := c.orders[orderID]
	if !ok {
		return gateway.NewAPIError(gateway.CodeUpstreamError, "order not found: "+orderID)
	}
	order.Status = status
	c.orders[orderID] = order
	return nil
}

func (c *Client) guard() error {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	if !c.initialized {
		return gateway.NotInitializedError()
	}
	if c.FailWith != nil {
		return c.FailWith
	}
	return nil
}
