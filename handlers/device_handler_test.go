package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Ammly/AdbSms/environments"
	"github.com/Ammly/AdbSms/internal/domain"
	"github.com/Ammly/AdbSms/internal/queue"
	"github.com/Ammly/AdbSms/internal/scheduler"
	validatorpkg "github.com/Ammly/AdbSms/pkg/validator"
)

func TestGetDeviceStatus_QueuesCheckWhenUnknown(t *testing.T) {
	ts := newTestService()
	handler := NewDeviceHandler(ts.svc)

	e := echo.New()
	c, rec := jsonContext(e, http.MethodGet, "/api/v1/device/status", "")

	if err := handler.GetDeviceStatus(c); err != nil {
		t.Fatalf("GetDeviceStatus returned error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rec.Code)
	}

	var body struct {
		Data struct {
			Status string `json:"status"`
			TaskID string `json:"taskId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if body.Data.Status != "checking" || body.Data.TaskID != "task-1" {
		t.Errorf("unexpected data %+v", body.Data)
	}
	if len(ts.tasks.tasks) != 1 || ts.tasks.tasks[0].Kind != queue.KindCheckDevice {
		t.Errorf("expected a device check task, got %+v", ts.tasks.tasks)
	}
}

func TestCheckDevice_Accepted(t *testing.T) {
	ts := newTestService()
	handler := NewDeviceHandler(ts.svc)

	e := echo.New()
	c, rec := jsonContext(e, http.MethodPost, "/api/v1/device/check", "")

	if err := handler.CheckDevice(c); err != nil {
		t.Fatalf("CheckDevice returned error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rec.Code)
	}
	if len(ts.tasks.tasks) != 1 {
		t.Errorf("expected one task, got %d", len(ts.tasks.tasks))
	}
}

type stubChecker struct{}

func (stubChecker) Check(ctx context.Context) (domain.DeviceStatus, error) {
	return domain.DeviceStatus{Connected: true, State: domain.DeviceStateDevice, LastCheck: time.Now()}, nil
}

func TestMonitorHandler_StartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &environments.Config{
		Monitor: environments.MonitorConfig{Interval: time.Hour},
		Alert:   environments.AlertConfig{IterationCount: 3},
	}
	monitor := scheduler.NewScheduler(stubChecker{}, nil, time.Hour, 3)
	handler := NewMonitorHandler(monitor, ctx, cfg)

	e := echo.New()
	e.Validator = validatorpkg.New()

	c, rec := jsonContext(e, http.MethodPost, "/api/v1/monitor/start", `{"interval_minutes": 5}`)
	if err := handler.StartMonitor(c); err != nil {
		t.Fatalf("StartMonitor returned error: %v", err)
	}
	if rec.Code != http.StatusOK || !monitor.IsRunning() {
		t.Fatalf("expected running monitor, got status %d", rec.Code)
	}
	if got := monitor.GetStatus().Interval; got != "5m0s" {
		t.Errorf("expected interval 5m0s, got %s", got)
	}

	c, rec = jsonContext(e, http.MethodPost, "/api/v1/monitor/stop", "")
	if err := handler.StopMonitor(c); err != nil {
		t.Fatalf("StopMonitor returned error: %v", err)
	}
	if rec.Code != http.StatusOK || monitor.IsRunning() {
		t.Fatalf("expected stopped monitor, got status %d", rec.Code)
	}
}

func TestMonitorHandler_InvalidInterval(t *testing.T) {
	monitor := scheduler.NewScheduler(stubChecker{}, nil, time.Hour, 3)
	handler := NewMonitorHandler(monitor, context.Background(), &environments.Config{})

	e := echo.New()
	e.Validator = validatorpkg.New()

	c, rec := jsonContext(e, http.MethodPost, "/api/v1/monitor/start", `{"interval_minutes": 0}`)
	if err := handler.StartMonitor(c); err != nil {
		t.Fatalf("StartMonitor returned error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", rec.Code)
	}
	if monitor.IsRunning() {
		t.Errorf("monitor must not start on invalid input")
	}
}

func TestHealth_NoDatabase(t *testing.T) {
	handler := NewHealthHandler(nil, nil)

	e := echo.New()
	c, rec := jsonContext(e, http.MethodGet, "/health", "")

	if err := handler.Health(c); err != nil {
		t.Fatalf("Health returned error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if body["status"] != "down" {
		t.Errorf("expected status down, got %v", body["status"])
	}
}

func TestHealth_ComponentStates(t *testing.T) {
	cases := []struct {
		name     string
		comps    []component
		overall  string
		wantCode int
	}{
		{
			name: "all up",
			comps: []component{
				{name: "database", required: true, ping: func(context.Context) error { return nil }},
				{name: "valkey", ping: func(context.Context) error { return nil }},
			},
			overall:  "ok",
			wantCode: http.StatusOK,
		},
		{
			name: "optional down",
			comps: []component{
				{name: "database", required: true, ping: func(context.Context) error { return nil }},
				{name: "valkey", ping: func(context.Context) error { return errors.New("refused") }},
			},
			overall:  "degraded",
			wantCode: http.StatusOK,
		},
		{
			name: "optional disabled",
			comps: []component{
				{name: "database", required: true, ping: func(context.Context) error { return nil }},
				{name: "valkey"},
			},
			overall:  "ok",
			wantCode: http.StatusOK,
		},
		{
			name: "required down",
			comps: []component{
				{name: "database", required: true, ping: func(context.Context) error { return errors.New("refused") }},
				{name: "valkey", ping: func(context.Context) error { return nil }},
			},
			overall:  "down",
			wantCode: http.StatusServiceUnavailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := &HealthHandler{components: tc.comps, checkTimeout: time.Second}

			c, rec := jsonContext(echo.New(), http.MethodGet, "/health", "")
			if err := handler.Health(c); err != nil {
				t.Fatalf("Health returned error: %v", err)
			}
			if rec.Code != tc.wantCode {
				t.Errorf("expected status %d, got %d", tc.wantCode, rec.Code)
			}

			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to unmarshal response body: %v", err)
			}
			if body["status"] != tc.overall {
				t.Errorf("expected status %s, got %v", tc.overall, body["status"])
			}
		})
	}
}
