package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"

	"github.com/Ammly/AdbSms/pkg/logger"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = valkey.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lease only while the lock still holds our token.
var renewScript = valkey.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// DeviceLock is a cross-process per-device lock so several workers sharing
// one handset never interleave commands on it.
type DeviceLock struct {
	client valkey.Client
	ttl    time.Duration
	retry  time.Duration
}

func (c *Client) NewDeviceLock(ttl time.Duration) *DeviceLock {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &DeviceLock{
		client: c.client,
		ttl:    ttl,
		retry:  100 * time.Millisecond,
	}
}

func (l *DeviceLock) Acquire(ctx context.Context, deviceID string) (func(), error) {
	key := lockKey(deviceID)
	token := uuid.NewString()

	for {
		err := l.client.Do(ctx, l.client.B().Set().Key(key).Value(token).Nx().Px(l.ttl).Build()).Error()
		if err == nil {
			stop := make(chan struct{})
			go keepAlive(stop, l.ttl/3, func() error { return l.renew(key, token) })

			var once sync.Once
			return func() {
				once.Do(func() {
					close(stop)
					l.release(key, token)
				})
			}, nil
		}
		if !valkey.IsValkeyNil(err) {
			return nil, fmt.Errorf("failed to acquire device lock %s: %w", key, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

// errLeaseLost is returned by renew when the key no longer holds our token.
var errLeaseLost = errors.New("device lock lease lost")

func (l *DeviceLock) renew(key, token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := renewScript.Exec(ctx, l.client, []string{key}, []string{token, fmt.Sprint(l.ttl.Milliseconds())}).AsInt64()
	if err != nil {
		return fmt.Errorf("failed to renew device lock %s: %w", key, err)
	}
	if n == 0 {
		return errLeaseLost
	}
	return nil
}

// keepAlive calls extend every interval until stop is closed or the lease
// is gone. A transient renewal error is logged and retried on the next tick.
func keepAlive(stop <-chan struct{}, interval time.Duration, extend func() error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			err := extend()
			if errors.Is(err, errLeaseLost) {
				logger.Errorf("Device lock lease lost while held")
				return
			}
			if err != nil {
				logger.Warnf("%v", err)
			}
		}
	}
}

func (l *DeviceLock) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseScript.Exec(ctx, l.client, []string{key}, []string{token}).Error(); err != nil {
		logger.Warnf("Failed to release device lock %s: %v", key, err)
	}
}

func lockKey(deviceID string) string {
	if deviceID == "" {
		deviceID = "default"
	}
	return deviceLockKeyPrefix + deviceID
}
