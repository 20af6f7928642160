package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subskit/svc/processor"
	"github.com/dmitrymomot/subskit/svc/subscription"
)

// Config holds the storefront API connection settings.
type Config struct {
	BaseURL string        `env:"STOREFRONT_URL,required"`
	APIKey  string        `env:"STOREFRONT_API_KEY"`
	Timeout time.Duration `env:"STOREFRONT_TIMEOUT" envDefault:"30s"`
}

// Client is the HTTP adapter to the storefront that fulfills recurring
// orders. It implements both processor.OrderCreator and
// dispatcher.OrderService.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a storefront client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

type createOrderRequest struct {
	InstallmentIDs []uuid.UUID `json:"installment_ids"`
}

type createOrderResponse struct {
	OrderID *uuid.UUID `json:"order_id"`
	Status  string     `json:"status"`
}

// CreateOrder asks the storefront to place and pay one order covering the
// given installments. The storefront resolves line items and payment
// sources itself; only installment IDs travel.
func (c *Client) CreateOrder(ctx context.Context, installments []*subscription.Installment) (processor.OrderResult, error) {
	ids := make([]uuid.UUID, 0, len(installments))
	for _, inst := range installments {
		ids = append(ids, inst.ID)
	}

	var resp createOrderResponse
	if err := c.post(ctx, "/subscription-orders", createOrderRequest{InstallmentIDs: ids}, &resp); err != nil {
		return processor.OrderResult{}, err
	}

	result := processor.OrderResult{OrderID: resp.OrderID}
	switch resp.Status {
	case "paid":
		result.Status = processor.OrderPaid
	case "payment_failed":
		result.Status = processor.OrderPaymentFailed
	case "failed":
		result.Status = processor.OrderFailed
	default:
		return result, fmt.Errorf("%w: %q", ErrUnexpectedStatus, resp.Status)
	}
	return result, nil
}

// Cancel cancels a storefront order.
func (c *Client) Cancel(ctx context.Context, orderID uuid.UUID) error {
	return c.post(ctx, "/orders/"+orderID.String()+"/cancel", nil, nil)
}

// TouchCompletion stamps the order's completion time so the storefront's
// cancellation flow accepts it.
func (c *Client) TouchCompletion(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	body := struct {
		CompletedAt time.Time `json:"completed_at"`
	}{CompletedAt: at}
	return c.post(ctx, "/orders/"+orderID.String()+"/touch-completion", body, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return fmt.Errorf("failed to encode storefront request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &payload)
	if err != nil {
		return fmt.Errorf("failed to build storefront request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("storefront request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned %d", ErrRequestFailed, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode storefront response: %w", err)
		}
	}
	return nil
}
