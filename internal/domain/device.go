package domain

import "time"

// adb device states as reported by `adb devices`.
const (
	DeviceStateDevice       = "device"
	DeviceStateOffline      = "offline"
	DeviceStateUnauthorized = "unauthorized"
	DeviceStateAbsent       = "absent"
)

// DeviceStatus is the last known reachability of the handset.
type DeviceStatus struct {
	DeviceID  string    `json:"deviceId,omitempty"`
	Connected bool      `json:"connected"`
	State     string    `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	Recovered bool      `json:"recovered,omitempty"`
	LastCheck time.Time `json:"lastCheck"`
}

// Stale reports whether the status is older than ttl.
func (d *DeviceStatus) Stale(now time.Time, ttl time.Duration) bool {
	return d.LastCheck.IsZero() || now.Sub(d.LastCheck) > ttl
}
