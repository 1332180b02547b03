package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// GatewayOrder is the order handle issued by the payment gateway for a
// quoted amount.
type GatewayOrder struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Receipt  string  `json:"receipt"`
	Status   string  `json:"status"`
}

// GatewayPayment is the gateway's view of a captured transaction. Used
// only to enrich the payment record; authenticity comes from the
// signature check, not from this lookup.
type GatewayPayment struct {
	ID       string  `json:"id"`
	OrderID  string  `json:"order_id"`
	Amount   float64 `json:"amount"`
	Method   string  `json:"method"`
	Status   string  `json:"status"`
	Captured bool    `json:"captured"`
	Contact  string  `json:"contact"`
	Fee      float64 `json:"fee"`
}

// GatewayClient talks to the payment gateway's REST API with the
// merchant key pair. All lookups are best-effort.
type GatewayClient struct {
	BaseURL    string
	KeyID      string
	KeySecret  string
	httpClient *http.Client
}

func NewGatewayClient(baseURL, keyID, keySecret string) *GatewayClient {
	return &GatewayClient{
		BaseURL:    baseURL,
		KeyID:      keyID,
		KeySecret:  keySecret,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// CreateOrder registers an order with the gateway so the client can pay
// against it.
func (c *GatewayClient) CreateOrder(ctx context.Context, amount float64, currency, receipt string) (*GatewayOrder, error) {
	body := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/orders", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.KeyID, c.KeySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var order GatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	return &order, nil
}

// FetchPayment looks a transaction up by its gateway id.
func (c *GatewayClient) FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error) {
	var payment GatewayPayment
	if err := c.get(ctx, "/v1/payments/"+paymentID, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// FetchOrder looks an order up by its gateway id.
func (c *GatewayClient) FetchOrder(ctx context.Context, orderID string) (*GatewayOrder, error) {
	var order GatewayOrder
	if err := c.get(ctx, "/v1/orders/"+orderID, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *GatewayClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.SetBasicAuth(c.KeyID, c.KeySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
