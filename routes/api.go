package routes

import (
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/Ammly/AdbSms/environments"
	"github.com/Ammly/AdbSms/handlers"
	"github.com/Ammly/AdbSms/internal/middlewares"
	"github.com/Ammly/AdbSms/pkg/metrics"
)

type Handlers struct {
	Health  *handlers.HealthHandler
	Message *handlers.MessageHandler
	Bulk    *handlers.BulkHandler
	Device  *handlers.DeviceHandler
	Monitor *handlers.MonitorHandler
}

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(e *echo.Echo, h Handlers, cfg *environments.Config) {
	e.GET("/health", h.Health.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// Older clients call /api directly; both prefixes serve the same routes.
	for _, prefix := range []string{"/api/v1", "/api"} {
		e.GET(prefix+"/health", h.Health.Health)

		api := e.Group(prefix,
			middlewares.RateLimit(cfg.Server.RateLimitRPS),
			middlewares.APIKeyAuth(cfg.Auth.APIKey),
		)
		registerAPI(api, h)
	}
}

func registerAPI(api *echo.Group, h Handlers) {
	api.POST("/sms", h.Message.SendMessage)
	api.GET("/sms", h.Message.GetAllMessages)
	api.POST("/sms/bulk", h.Bulk.SendBulk)
	api.GET("/sms/:id", h.Message.GetMessage)
	api.POST("/sms/:id/resend", h.Message.ResendMessage)

	api.GET("/bulk", h.Bulk.ListBulkJobs)
	api.GET("/bulk/:id", h.Bulk.GetBulkJob)

	api.GET("/device/status", h.Device.GetDeviceStatus)
	api.POST("/device/check", h.Device.CheckDevice)

	api.GET("/stats", h.Message.GetStats)

	monitor := api.Group("/monitor")
	monitor.POST("/start", h.Monitor.StartMonitor)
	monitor.POST("/stop", h.Monitor.StopMonitor)
	monitor.GET("/status", h.Monitor.GetMonitorStatus)
}
