package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Notifier is the delivery contract: one job in, success or failure out.
// Fire-and-await-once; retrying is not this pipeline's job.
type Notifier interface {
	Send(ctx context.Context, job *Job) error
}

type ClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// Client talks to the internal notification API, which owns templates and
// actual delivery (email provider, SMS provider).
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(config ClientConfig, logger *slog.Logger) *Client {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: config.BaseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *Client) Send(ctx context.Context, job *Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid notification job: %w", err)
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal notification job: %w", err)
	}

	url := fmt.Sprintf("%s/v1/notifications", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		c.logger.Error("notification API returned error",
			"status", resp.StatusCode,
			"channel", job.Channel,
			"template", job.Template,
			"response", string(respBody))
		return fmt.Errorf("notification API error: status %d", resp.StatusCode)
	}

	c.logger.Info("notification dispatched",
		"channel", job.Channel,
		"template", job.Template)
	return nil
}
