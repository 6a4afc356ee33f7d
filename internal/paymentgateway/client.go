package paymentgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/partybook/settlement-service/internal"
)

// Authoritative payment statuses the gateway reports.
const (
	StatusSucceeded      = "succeeded"
	StatusProcessing     = "processing"
	StatusRequiresAction = "requires_action"
	StatusCanceled       = "canceled"
	StatusFailed         = "failed"
)

// Payment is the gateway's view of a payment, fetched by the reconciliation
// path when a backup signal arrives and the local event may be stale.
type Payment struct {
	ID                  string `json:"id"`
	Status              string `json:"status"`
	Amount              int64  `json:"amount"`
	Currency            string `json:"currency"`
	PaymentMethodFamily string `json:"payment_method_family"`
}

func (p *Payment) Succeeded() bool {
	return p.Status == StatusSucceeded
}

// API is what the settlement pipeline needs from the gateway.
type API interface {
	RetrievePayment(ctx context.Context, paymentID string) (*Payment, error)
}

type Config struct {
	APIURL         string
	APIKey         string
	RequestTimeout time.Duration
}

type Client struct {
	apiURL  string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		apiURL:  config.APIURL,
		apiKey:  config.APIKey,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// RetrievePayment fetches the authoritative status for a payment. Transport
// failures are transient: the caller can safely let the gateway redeliver.
func (c *Client) RetrievePayment(ctx context.Context, paymentID string) (*Payment, error) {
	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1/payments/%s", c.apiURL, paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Info("retrieving payment from gateway", "payment_id", paymentID)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("gateway request failed", "error", err, "payment_id", paymentID)
		return nil, internal.NewTransientError("gateway unreachable", internal.ErrCodeGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, internal.NewNotFoundError(
			fmt.Sprintf("payment %s not found at gateway", paymentID),
			internal.ErrCodePaymentNotFound)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("gateway returned error",
			"status", resp.StatusCode,
			"payment_id", paymentID)
		return nil, internal.NewTransientError(
			fmt.Sprintf("gateway returned status %d", resp.StatusCode),
			internal.ErrCodeGatewayUnavailable, nil)
	}

	var apiResponse struct {
		Data Payment `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	c.logger.Info("retrieved payment from gateway",
		"payment_id", apiResponse.Data.ID,
		"status", apiResponse.Data.Status,
		"amount", apiResponse.Data.Amount)

	return &apiResponse.Data, nil
}
