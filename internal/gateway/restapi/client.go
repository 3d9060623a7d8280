package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rmorales/supplysync-backend/internal/gateway"
)

const (
	defaultTimeout = 15 * time.Second
	maxRawResponse = 2048
)

// Client is a generic JSON/REST supplier integration with bearer auth.
// The upstream API is expected to expose /products, /orders and /ping.
type Client struct {
	cfg         gateway.Config
	http        *http.Client
	initialized bool
}

// New returns an uninitialized REST client.
func New() *Client {
	return &Client{}
}

// NewGatewayClient adapts New to the registry constructor shape.
func NewGatewayClient() gateway.Client {
	return New()
}

// Initialize validates the config and prepares the HTTP client. Calling it
// again replaces the configuration, so retrying a failed setup is safe.
func (c *Client) Initialize(ctx context.Context, cfg gateway.Config) error {
	if strings.TrimSpace(cfg.EndpointURL) == "" {
		return gateway.NewAPIError(gateway.CodeBadResponse, "endpoint url is required")
	}
	parsed, err := url.Parse(cfg.EndpointURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return gateway.NewAPIError(gateway.CodeBadResponse, fmt.Sprintf("invalid endpoint url %q", cfg.EndpointURL))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c.cfg = cfg
	c.http = &http.Client{Timeout: cfg.Timeout}
	c.initialized = true
	return nil
}

// Probe issues a lightweight ping against the supplier.
func (c *Client) Probe(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodGet, "/ping", nil, nil)
}

func (c *Client) GetProduct(ctx context.Context, sku string) (*gateway.Product, error) {
	if sku == "" {
		return nil, gateway.NewAPIError(gateway.CodeBadResponse, "sku is required")
	}
	var product gateway.Product
	if err := c.doRequest(ctx, http.MethodGet, "/products/"+url.PathEscape(sku), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) GetProducts(ctx context.Context, skus []string) ([]gateway.Product, error) {
	body := map[string]any{"skus": skus}
	var products []gateway.Product
	if err := c.doRequest(ctx, http.MethodPost, "/products/batch", body, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) UpdateProduct(ctx context.Context, product gateway.Product) error {
	if product.SKU == "" {
		return gateway.NewAPIError(gateway.CodeBadResponse, "sku is required")
	}
	return c.doRequest(ctx, http.MethodPut, "/products/"+url.PathEscape(product.SKU), product, nil)
}

func (c *Client) UpdateInventory(ctx context.Context, sku string, quantity int) error {
	if sku == "" {
		return gateway.NewAPIError(gateway.CodeBadResponse, "sku is required")
	}
	body := map[string]any{"quantity": quantity}
	return c.doRequest(ctx, http.MethodPut, "/products/"+url.PathEscape(sku)+"/inventory", body, nil)
}

func (c *Client) UpdatePrice(ctx context.Context, sku string, price decimal.Decimal) error {
	if sku == "" {
		return gateway.NewAPIError(gateway.CodeBadResponse, "sku is required")
	}
	body := map[string]any{"price": price}
	return c.doRequest(ctx, http.MethodPut, "/products/"+url.PathEscape(sku)+"/price", body, nil)
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*gateway.Order, error) {
	if orderID == "" {
		return nil, gateway.NewAPIError(gateway.CodeBadResponse, "order id is required")
	}
	var order gateway.Order
	if err := c.doRequest(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) GetOrders(ctx context.Context, since time.Time) ([]gateway.Order, error) {
	endpoint := "/orders"
	if !since.IsZero() {
		endpoint += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339))
	}
	var orders []gateway.Order
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status string) error {
	if orderID == "" {
		return gateway.NewAPIError(gateway.CodeBadResponse, "order id is required")
	}
	body := map[string]any{"status": status}
	return c.doRequest(ctx, http.MethodPut, "/orders/"+url.PathEscape(orderID)+"/status", body, nil)
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, requestBody any, response any) error {
	if !c.initialized {
		return gateway.NotInitializedError()
	}

	var bodyBytes []byte
	if requestBody != nil {
		var err error
		bodyBytes, err = json.Marshal(requestBody)
		if err != nil {
			return gateway.NewAPIError(gateway.CodeBadResponse, fmt.Sprintf("marshal request body: %v", err))
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, c.cfg.EndpointURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return gateway.NewAPIError(gateway.CodeTransport, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return gateway.NewAPIError(gateway.CodeTimeout, "supplier call timed out")
		}
		return gateway.NewAPIError(gateway.CodeTransport, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gateway.NewAPIError(gateway.CodeTransport, fmt.Sprintf("read response: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := gateway.NewAPIError(gateway.CodeUpstreamError, fmt.Sprintf("supplier returned status %d", resp.StatusCode))
		apiErr.RawResponse = truncateRaw(raw)
		return apiErr
	}

	if response == nil {
		return nil
	}
	if err := json.Unmarshal(raw, response); err != nil {
		apiErr := gateway.NewAPIError(gateway.CodeBadResponse, fmt.Sprintf("decode response: %v", err))
		apiErr.RawResponse = truncateRaw(raw)
		return apiErr
	}
	return nil
}

// truncateRaw caps the diagnostic copy of an upstream body. Decoding always
// sees the full response; only the RawResponse surfaced on errors is bounded.
func truncateRaw(raw []byte) string {
	if len(raw) > maxRawResponse {
		return string(raw[:maxRawResponse])
	}
	return string(raw)
}
