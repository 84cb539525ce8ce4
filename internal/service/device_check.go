package service

import (
	"context"
	"fmt"

	"github.com/Ammly/AdbSms/internal/device"
	"github.com/Ammly/AdbSms/internal/domain"
	"github.com/Ammly/AdbSms/pkg/logger"
)

type deviceLink interface {
	EnsureReady(ctx context.Context) (device.Readiness, error)
	Target() string
	Status() domain.DeviceStatus
}

// DeviceChecker runs a readiness check under the device guard and publishes
// the result to the status cache.
type DeviceChecker struct {
	link  deviceLink
	guard device.Guard
	cache statusCache
}

// NewDeviceChecker wires the checker. cache may be nil.
func NewDeviceChecker(link deviceLink, guard device.Guard, cache statusCache) *DeviceChecker {
	if guard == nil {
		guard = device.NewLocalGuard()
	}
	return &DeviceChecker{link: link, guard: guard, cache: cache}
}

// Check returns the recorded status. The error is non-nil only when the
// guard could not be taken or adb itself is unusable.
func (c *DeviceChecker) Check(ctx context.Context) (domain.DeviceStatus, error) {
	release, err := c.guard.Acquire(ctx, c.link.Target())
	if err != nil {
		return domain.DeviceStatus{}, fmt.Errorf("failed to acquire device guard: %w", err)
	}
	_, checkErr := c.link.EnsureReady(ctx)
	release()

	status := c.link.Status()

	if c.cache != nil {
		if err := c.cache.CacheDeviceStatus(ctx, status); err != nil {
			logger.Warnf("Failed to cache device status: %v", err)
		}
	}

	return status, checkErr
}
