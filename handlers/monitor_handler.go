package handlers

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Ammly/AdbSms/environments"
	"github.com/Ammly/AdbSms/internal/scheduler"
	"github.com/Ammly/AdbSms/pkg/response"
	"github.com/Ammly/AdbSms/pkg/validator"
)

type MonitorHandler struct {
	monitor *scheduler.Scheduler
	ctx     context.Context
	config  *environments.Config
}

type StartMonitorRequest struct {
	IntervalMinutes *int `json:"interval_minutes,omitempty" validate:"omitempty,min=1"`
	AlertThreshold  *int `json:"alert_threshold,omitempty" validate:"omitempty,min=0"`
}

// NewMonitorHandler keeps ctx so a monitor started over HTTP outlives the
// request that started it.
func NewMonitorHandler(
	monitor *scheduler.Scheduler,
	ctx context.Context,
	cfg *environments.Config,
) *MonitorHandler {
	return &MonitorHandler{
		monitor: monitor,
		ctx:     ctx,
		config:  cfg,
	}
}

// StartMonitor godoc
// @Summary Start the device monitor
// @Description Starts periodic device checks with optional parameters
// @Tags monitor
// @Accept json
// @Produce json
// @Param X-API-Key header string true "API key"
// @Param request body StartMonitorRequest false "Monitor parameters (optional)"
// @Success 200 {object} response.SuccessResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/monitor/start [post]
func (h *MonitorHandler) StartMonitor(c echo.Context) error {
	if h.monitor.IsRunning() {
		return response.OkWithMessage(c, "Device monitor is already running", h.monitor.GetStatus())
	}

	var req StartMonitorRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	interval := h.config.Monitor.Interval
	if req.IntervalMinutes != nil {
		interval = time.Duration(*req.IntervalMinutes) * time.Minute
	}

	threshold := h.config.Alert.IterationCount
	if req.AlertThreshold != nil {
		threshold = *req.AlertThreshold
	}

	if err := h.monitor.StartWithParams(h.ctx, interval, threshold); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Device monitor started successfully", h.monitor.GetStatus())
}

// StopMonitor godoc
// @Summary Stop the device monitor
// @Tags monitor
// @Produce json
// @Param X-API-Key header string true "API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/monitor/stop [post]
func (h *MonitorHandler) StopMonitor(c echo.Context) error {
	if !h.monitor.IsRunning() {
		return response.OkWithMessage(c, "Device monitor is already stopped", h.monitor.GetStatus())
	}

	if err := h.monitor.Stop(); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Device monitor stopped successfully", h.monitor.GetStatus())
}

// GetMonitorStatus godoc
// @Summary Get device monitor status
// @Tags monitor
// @Produce json
// @Param X-API-Key header string true "API key"
// @Success 200 {object} response.SuccessResponse{data=scheduler.SchedulerStatus}
// @Router /api/v1/monitor/status [get]
func (h *MonitorHandler) GetMonitorStatus(c echo.Context) error {
	return response.Ok(c, h.monitor.GetStatus())
}
