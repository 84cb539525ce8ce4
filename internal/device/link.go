package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Ammly/AdbSms/internal/domain"
	"github.com/Ammly/AdbSms/pkg/logger"
	"github.com/Ammly/AdbSms/pkg/metrics"
)

// maxRecoveries bounds adb server restarts within a single readiness check.
const maxRecoveries = 1

const reasonAmbiguous = "ambiguous or absent device"

// Readiness is the result of one EnsureReady call.
type Readiness struct {
	Ready     bool
	DeviceID  string
	State     string
	Reason    string
	Recovered bool
}

type entry struct {
	Serial string
	State  string
}

// LinkManager decides whether the handset can accept a command and performs
// a bounded recovery of the adb server when it cannot.
type LinkManager struct {
	transport Transport
	target    string
	now       func() time.Time

	mu            sync.Mutex
	suspect       bool
	suspectReason string
	last          domain.DeviceStatus
}

func NewLinkManager(transport Transport, target string) *LinkManager {
	return &LinkManager{
		transport: transport,
		target:    target,
		now:       time.Now,
	}
}

// Target is the configured serial, empty when any single device is accepted.
func (m *LinkManager) Target() string {
	return m.target
}

// MarkSuspect forces a server restart before the next enumeration.
func (m *LinkManager) MarkSuspect(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.suspect = true
	m.suspectReason = reason
	logger.Warnf("Device link marked suspect: %s", reason)
}

// Status returns the last recorded readiness.
func (m *LinkManager) Status() domain.DeviceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// EnsureReady enumerates attached devices and checks the target is usable.
// The only error returned is a transport fatal one; everything else is
// reported through Readiness.
func (m *LinkManager) EnsureReady(ctx context.Context) (Readiness, error) {
	m.mu.Lock()
	suspect, suspectReason := m.suspect, m.suspectReason
	m.suspect = false
	m.mu.Unlock()

	recoveries := 0
	if suspect {
		logger.Infof("Resetting adb server before enumeration (suspect link: %s)", suspectReason)
		if err := m.recover(ctx); err != nil {
			if errors.Is(err, domain.ErrTransportFatal) {
				return m.record(Readiness{Reason: err.Error(), State: domain.DeviceStateAbsent}), err
			}
			logger.Warnf("adb server restart failed: %v", err)
		}
		recoveries++
	}

	for {
		logger.Debugf("Checking device connectivity (target=%q)", m.target)

		entries, err := m.enumerate(ctx)
		if errors.Is(err, domain.ErrTransportFatal) {
			logger.Errorf("adb unavailable: %v", err)
			return m.record(Readiness{Reason: err.Error(), State: domain.DeviceStateAbsent}), err
		}

		r, recoverable := m.evaluate(entries, err)
		r.Recovered = recoveries > 0

		if r.Ready || !recoverable || recoveries >= maxRecoveries {
			if r.Ready {
				logger.Infof("Device %s ready", r.DeviceID)
			} else {
				logger.Warnf("Device not ready: %s", r.Reason)
			}
			return m.record(r), nil
		}

		logger.Warnf("Device not ready (%s), restarting adb server", r.Reason)
		if err := m.recover(ctx); err != nil {
			if errors.Is(err, domain.ErrTransportFatal) {
				return m.record(Readiness{Reason: err.Error(), State: domain.DeviceStateAbsent}), err
			}
			logger.Warnf("adb server restart failed: %v", err)
		}
		recoveries++
	}
}

func (m *LinkManager) enumerate(ctx context.Context) ([]entry, error) {
	res, err := m.transport.Run(ctx, "", "devices")
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("adb devices exited with code %d: %s", res.ExitCode, res.Output)
	}
	return parseDevices(res.Output), nil
}

// evaluate turns an enumeration into readiness. The bool reports whether a
// server restart could plausibly change the answer.
func (m *LinkManager) evaluate(entries []entry, err error) (Readiness, bool) {
	if err != nil {
		return Readiness{State: domain.DeviceStateAbsent, Reason: err.Error()}, true
	}

	if m.target != "" {
		for _, e := range entries {
			if e.Serial != m.target {
				continue
			}
			if e.State != domain.DeviceStateDevice {
				return Readiness{DeviceID: e.Serial, State: e.State, Reason: fmt.Sprintf("device %s is %s", e.Serial, e.State)}, true
			}
			return Readiness{Ready: true, DeviceID: e.Serial, State: e.State}, false
		}
		return Readiness{DeviceID: m.target, State: domain.DeviceStateAbsent, Reason: fmt.Sprintf("device %s not attached", m.target)}, true
	}

	switch len(entries) {
	case 0:
		return Readiness{State: domain.DeviceStateAbsent, Reason: reasonAmbiguous}, true
	case 1:
		e := entries[0]
		if e.State != domain.DeviceStateDevice {
			return Readiness{DeviceID: e.Serial, State: e.State, Reason: fmt.Sprintf("device %s is %s", e.Serial, e.State)}, true
		}
		return Readiness{Ready: true, DeviceID: e.Serial, State: e.State}, false
	default:
		return Readiness{State: domain.DeviceStateAbsent, Reason: reasonAmbiguous}, false
	}
}

func (m *LinkManager) recover(ctx context.Context) error {
	metrics.IncDeviceRecovery()

	if err := m.transport.KillServer(ctx); err != nil {
		if errors.Is(err, domain.ErrTransportFatal) {
			return err
		}
		logger.Warnf("adb kill-server failed: %v", err)
	}

	if err := m.transport.StartServer(ctx); err != nil {
		return fmt.Errorf("failed to start adb server: %w", err)
	}

	return nil
}

func (m *LinkManager) record(r Readiness) Readiness {
	state := r.State
	if state == "" {
		state = domain.DeviceStateAbsent
	}

	m.mu.Lock()
	m.last = domain.DeviceStatus{
		DeviceID:  r.DeviceID,
		Connected: r.Ready,
		State:     state,
		Reason:    r.Reason,
		Recovered: r.Recovered,
		LastCheck: m.now(),
	}
	m.mu.Unlock()

	metrics.SetDeviceReady(r.Ready)
	return r
}

// parseDevices reads `adb devices` output: a header line, optional daemon
// banner lines starting with '*', then "serial<TAB>state" rows.
func parseDevices(output string) []entry {
	var entries []entry
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "*") || strings.HasPrefix(line, "List of devices") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		entries = append(entries, entry{Serial: fields[0], State: fields[1]})
	}
	return entries
}
