package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound distinguishes "no such order" from transport failures. The
// public status endpoint accepts either the order id or the human-readable
// order number.
var ErrNotFound = errors.New("order not found")

// Client is a stateless read façade over the public tracking endpoint.
// Every call re-fetches; there is no cache and no retry.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// GetByOrderNumber fetches the tracking snapshot for an order number.
// A 404 maps to ErrNotFound; transport and decode failures are returned
// as-is, so callers can tell "not found" from "unreachable".
func (c *Client) GetByOrderNumber(ctx context.Context, orderNumber string) (*OrderTracking, error) {
	u := fmt.Sprintf("%s/orders/public/%s/status", c.BaseURL, url.PathEscape(orderNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tracking fetch: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, orderNumber)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("tracking fetch: unexpected status %d", resp.StatusCode)
	}

	var t OrderTracking
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return nil, fmt.Errorf("tracking decode: %w", err)
	}
	return &t, nil
}

// GetByID fetches by order id. The endpoint is shared with order-number
// lookups.
func (c *Client) GetByID(ctx context.Context, orderID string) (*OrderTracking, error) {
	return c.GetByOrderNumber(ctx, orderID)
}

// Lookup is the fail-soft shape: any failure collapses to nil. Callers must
// treat nil as "unavailable", not "error".
func (c *Client) Lookup(ctx context.Context, orderNumber string) *OrderTracking {
	t, err := c.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil
	}
	return t
}
