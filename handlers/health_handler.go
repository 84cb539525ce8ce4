package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"

	"github.com/Ammly/AdbSms/internal/domain"
	"github.com/Ammly/AdbSms/pkg/redis"
)

const (
	componentUp       = "up"
	componentDown     = "down"
	componentDisabled = "disabled"
)

// component is one dependency probed by the health endpoint. A required
// component that is down takes the whole service down; an optional one only
// degrades it.
type component struct {
	name     string
	required bool
	ping     func(ctx context.Context) error
}

type deviceStatusReader interface {
	GetDeviceStatus(ctx context.Context) (*domain.DeviceStatus, error)
}

// HealthHandler handles health checks.
type HealthHandler struct {
	components   []component
	device       deviceStatusReader
	checkTimeout time.Duration
}

// NewHealthHandler probes the database (required) and Valkey (optional).
// Either may be nil.
func NewHealthHandler(db *sqlx.DB, redisClient *redis.Client) *HealthHandler {
	h := &HealthHandler{checkTimeout: 2 * time.Second}

	database := component{name: "database", required: true}
	if db != nil {
		database.ping = db.PingContext
	}
	valkey := component{name: "valkey"}
	if redisClient != nil {
		valkey.ping = redisClient.Ping
		h.device = redisClient
	}

	h.components = []component{database, valkey}
	return h
}

// Health returns overall status, per component status and the last known
// device state. The device state is informational and never fails the check.
// @Summary Health check
// @Description Returns overall status with database and Valkey connectivity results
// @Tags health
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.checkTimeout)
	defer cancel()

	overall := "ok"
	components := make(map[string]any, len(h.components)+1)

	for _, comp := range h.components {
		status := probe(ctx, comp)
		components[comp.name] = map[string]any{"status": status}

		if status == componentUp || (status == componentDisabled && !comp.required) {
			continue
		}
		if comp.required {
			overall = "down"
		} else if overall == "ok" {
			overall = "degraded"
		}
	}

	if h.device != nil {
		if ds, err := h.device.GetDeviceStatus(ctx); err == nil && ds != nil {
			components["device"] = map[string]any{
				"connected": ds.Connected,
				"state":     ds.State,
				"lastCheck": ds.LastCheck.Format(time.RFC3339),
			}
		}
	}

	code := http.StatusOK
	if overall == "down" {
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, map[string]any{
		"status":     overall,
		"timestamp":  time.Now().Format(time.RFC3339),
		"components": components,
	})
}

func probe(ctx context.Context, comp component) string {
	if comp.ping == nil {
		if comp.required {
			return componentDown
		}
		return componentDisabled
	}
	if err := comp.ping(ctx); err != nil {
		return componentDown
	}
	return componentUp
}
