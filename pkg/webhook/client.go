package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Ammly/AdbSms/environments"
	"github.com/Ammly/AdbSms/pkg/logger"
)

// Alert is the JSON body posted when the handset keeps failing checks.
type Alert struct {
	Alert               string `json:"alert"`
	RunNumber           int64  `json:"runNumber"`
	ConsecutiveFailures int    `json:"consecutiveFailures"`
	DeviceID            string `json:"deviceId,omitempty"`
	State               string `json:"state,omitempty"`
	Reason              string `json:"reason,omitempty"`
	Timestamp           string `json:"timestamp"`
	Message             string `json:"message"`
}

type Client struct {
	httpClient *resty.Client
	webhookURL string
}

func NewAlertClient(cfg environments.AlertConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		webhookURL: cfg.WebhookURL,
	}
}

func (c *Client) SendAlert(ctx context.Context, alert Alert) error {
	if c.webhookURL == "" {
		return fmt.Errorf("alert webhook url is not configured")
	}

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(alert).
		Post(c.webhookURL)
	if err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}

	logger.Infof("Alert request to %s completed in %v (status: %d)", c.webhookURL, time.Since(startTime), resp.StatusCode())

	if !resp.IsSuccess() {
		return fmt.Errorf("unexpected alert status code: %d, body: %s", resp.StatusCode(), resp.String())
	}

	return nil
}

func (c *Client) GetURL() string {
	return c.webhookURL
}
