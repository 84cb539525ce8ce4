package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ammly/AdbSms/internal/domain"
	"github.com/Ammly/AdbSms/pkg/logger"
	"github.com/Ammly/AdbSms/pkg/webhook"
)

// deviceChecker matches service.DeviceChecker so the monitor can be tested
// with a fake.
type deviceChecker interface {
	Check(ctx context.Context) (domain.DeviceStatus, error)
}

type alertSender interface {
	SendAlert(ctx context.Context, alert webhook.Alert) error
}

// Scheduler periodically checks the handset and alerts after a run of
// consecutive unreachable checks.
type Scheduler struct {
	checker        deviceChecker
	alerts         alertSender
	interval       time.Duration
	alertThreshold int

	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.RWMutex

	lastRunAt       time.Time
	runsCount       int64
	lastStatus      *domain.DeviceStatus
	lastAlertSentAt time.Time

	consecutiveUnreachable int
}

// NewScheduler builds an idle monitor. alerts may be nil to disable alerting.
func NewScheduler(checker deviceChecker, alerts alertSender, interval time.Duration, alertThreshold int) *Scheduler {
	return &Scheduler{
		checker:        checker,
		alerts:         alerts,
		interval:       interval,
		alertThreshold: alertThreshold,
	}
}

func (s *Scheduler) StartWithParams(ctx context.Context, interval time.Duration, alertThreshold int) error {
	if interval <= 0 {
		interval = time.Hour
	}

	s.mu.Lock()
	s.interval = interval
	s.alertThreshold = alertThreshold
	s.consecutiveUnreachable = 0
	s.mu.Unlock()

	return s.Start(ctx)
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.running {
		s.mu.Unlock()
		logger.Warnf("Device monitor is already running")
		return nil
	}
	if s.interval <= 0 {
		s.interval = time.Hour
	}

	s.running = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	interval := s.interval
	s.mu.Unlock()

	logger.Infof("Starting device monitor with interval: %v", interval)

	go s.run(ctx, interval)

	return nil
}

func (s *Scheduler) run(ctx context.Context, interval time.Duration) {
	defer close(s.doneChan)

	s.checkDevice(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.checkDevice(ctx)

		case <-s.stopChan:
			logger.Warnf("Device monitor received stop signal")
			return

		case <-ctx.Done():
			logger.Warnf("Device monitor context cancelled")
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return
		}
	}
}

func (s *Scheduler) checkDevice(ctx context.Context) {
	s.mu.Lock()
	s.lastRunAt = time.Now()
	s.runsCount++
	runNumber := s.runsCount
	threshold := s.alertThreshold
	s.mu.Unlock()

	status, err := s.checker.Check(ctx)
	if err != nil && status.State == "" {
		status.Reason = err.Error()
	}
	reachable := err == nil && status.Connected

	s.mu.Lock()
	s.lastStatus = &status

	if reachable {
		if s.consecutiveUnreachable > 0 {
			logger.Infof("[Check #%d] Device %s reachable again after %d failed checks",
				runNumber, status.DeviceID, s.consecutiveUnreachable)
		}
		s.consecutiveUnreachable = 0
		s.mu.Unlock()
		return
	}

	s.consecutiveUnreachable++
	count := s.consecutiveUnreachable
	s.mu.Unlock()

	logger.Warnf("[Check #%d] Device unreachable (%d/%d): %s", runNumber, count, threshold, status.Reason)

	if s.alerts != nil && threshold > 0 && count >= threshold {
		go s.sendAlert(runNumber, count, status)
	}
}

func (s *Scheduler) sendAlert(runNumber int64, consecutive int, status domain.DeviceStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	alert := webhook.Alert{
		Alert:               "device_unreachable",
		RunNumber:           runNumber,
		ConsecutiveFailures: consecutive,
		DeviceID:            status.DeviceID,
		State:               status.State,
		Reason:              status.Reason,
		Timestamp:           time.Now().Format(time.RFC3339),
		Message:             fmt.Sprintf("Device unreachable for %d consecutive checks", consecutive),
	}

	if err := s.alerts.SendAlert(ctx, alert); err != nil {
		logger.Errorf("Failed to send device alert: %v", err)
		return
	}

	s.mu.Lock()
	s.lastAlertSentAt = time.Now()
	s.mu.Unlock()
	logger.Infof("Device alert sent (consecutive failures: %d)", consecutive)
}

func (s *Scheduler) Stop() error {
	s.mu.Lock()

	if !s.running {
		s.mu.Unlock()
		logger.Warnf("Device monitor is not running")
		return nil
	}

	s.running = false
	stopChan := s.stopChan
	doneChan := s.doneChan
	s.mu.Unlock()

	close(stopChan)
	<-doneChan

	logger.Infof("Device monitor stopped")
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) GetStatus() SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := SchedulerStatus{
		Running:                s.running,
		LastRunAt:              s.lastRunAt,
		RunsCount:              s.runsCount,
		Interval:               s.interval.String(),
		ConsecutiveUnreachable: s.consecutiveUnreachable,
		AlertThreshold:         s.alertThreshold,
		LastAlertSentAt:        s.lastAlertSentAt,
		LastDeviceStatus:       s.lastStatus,
	}

	if s.running && !s.lastRunAt.IsZero() {
		status.NextRunAt = s.lastRunAt.Add(s.interval)
	}

	return status
}

type SchedulerStatus struct {
	Running                bool                 `json:"running"`
	LastRunAt              time.Time            `json:"lastRunAt,omitempty"`
	NextRunAt              time.Time            `json:"nextRunAt,omitempty"`
	RunsCount              int64                `json:"runsCount"`
	Interval               string               `json:"interval"`
	ConsecutiveUnreachable int                  `json:"consecutiveUnreachable"`
	AlertThreshold         int                  `json:"alertThreshold"`
	LastAlertSentAt        time.Time            `json:"lastAlertSentAt,omitempty"`
	LastDeviceStatus       *domain.DeviceStatus `json:"lastDeviceStatus,omitempty"`
}
