package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/Ammly/AdbSms/internal/service"
	"github.com/Ammly/AdbSms/pkg/response"
)

type DeviceHandler struct {
	service *service.MessageService
}

func NewDeviceHandler(service *service.MessageService) *DeviceHandler {
	return &DeviceHandler{service: service}
}

// GetDeviceStatus godoc
// @Summary Get device status
// @Description Returns the cached handset status. A missing entry answers 202 "checking"; a stale one is returned as "refreshing" while a new check runs.
// @Tags device
// @Produce json
// @Param X-API-Key header string true "API key"
// @Success 200 {object} response.SuccessResponse{data=service.DeviceStatusView}
// @Success 202 {object} response.SuccessResponse{data=service.DeviceStatusView}
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/device/status [get]
func (h *DeviceHandler) GetDeviceStatus(c echo.Context) error {
	view, err := h.service.GetDeviceStatus(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	if view.Status == service.DeviceStatusChecking {
		return response.Accepted(c, "Device check queued", view)
	}

	return response.Ok(c, view)
}

// CheckDevice godoc
// @Summary Queue a device check
// @Tags device
// @Produce json
// @Param X-API-Key header string true "API key"
// @Success 202 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/device/check [post]
func (h *DeviceHandler) CheckDevice(c echo.Context) error {
	taskID, err := h.service.CheckDevice(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Accepted(c, "Device check queued", map[string]string{
		"status":  "checking",
		"task_id": taskID,
	})
}
