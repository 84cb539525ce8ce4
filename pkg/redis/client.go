package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/Ammly/AdbSms/environments"
	"github.com/Ammly/AdbSms/internal/domain"
	"github.com/Ammly/AdbSms/pkg/logger"
)

type Client struct {
	client valkey.Client
}

const (
	keyPrefix           = "adbsms:"
	deviceStatusKey     = keyPrefix + "device:status"
	deviceStatusRetain  = 24 * time.Hour
	deviceLockKeyPrefix = keyPrefix + "lock:device:"
)

func NewRedisClient(cfg environments.RedisConfig) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Connected to Redis (via Valkey client)")

	return &Client{client: client}, nil
}

// Valkey exposes the underlying client for components that build their own
// commands (the list task queue).
func (c *Client) Valkey() valkey.Client {
	return c.client
}

// CacheDeviceStatus stores the latest readiness. The entry outlives the
// staleness window so callers can still show the last known state.
func (c *Client) CacheDeviceStatus(ctx context.Context, status domain.DeviceStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal device status: %w", err)
	}

	err = c.client.Do(ctx, c.client.B().Set().Key(deviceStatusKey).Value(string(data)).Ex(deviceStatusRetain).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to cache device status: %w", err)
	}

	logger.Debugf("Cached device status (connected=%t state=%s)", status.Connected, status.State)

	return nil
}

// GetDeviceStatus returns nil, nil when nothing has been cached yet.
func (c *Client) GetDeviceStatus(ctx context.Context) (*domain.DeviceStatus, error) {
	result := c.client.Do(ctx, c.client.B().Get().Key(deviceStatusKey).Build())
	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get device status: %w", result.Error())
	}

	data, err := result.ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to read device status: %w", err)
	}

	var status domain.DeviceStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal device status: %w", err)
	}

	return &status, nil
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}
