package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Ammly/AdbSms/environments"
	"github.com/Ammly/AdbSms/handlers"
	"github.com/Ammly/AdbSms/internal/device"
	"github.com/Ammly/AdbSms/internal/domain"
	"github.com/Ammly/AdbSms/internal/queue"
	"github.com/Ammly/AdbSms/internal/repository"
	"github.com/Ammly/AdbSms/internal/scheduler"
	"github.com/Ammly/AdbSms/internal/service"
	"github.com/Ammly/AdbSms/pkg/database"
	"github.com/Ammly/AdbSms/pkg/logger"
	"github.com/Ammly/AdbSms/pkg/metrics"
	"github.com/Ammly/AdbSms/pkg/redis"
	"github.com/Ammly/AdbSms/pkg/validator"
	"github.com/Ammly/AdbSms/pkg/webhook"
	"github.com/Ammly/AdbSms/routes"

	_ "github.com/Ammly/AdbSms/docs" // swagger docs
)

// @title AdbSms API
// @version 1.0
// @description Queue SMS messages for delivery through an Android handset over adb

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// @schemes http https
func main() {
	cfg := environments.Load()

	logger.Init(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync()

	if cfg.Auth.APIKey == "" {
		logger.Fatalf("ADBSMS_API_KEY is required but not set")
	}

	logger.Infof("Starting AdbSms...")

	metrics.Register()

	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	if os.Getenv("SEED_DATA") == "true" {
		if err := database.SeedTestData(db, cfg.Dispatch.DefaultSimID); err != nil {
			logger.Warnf("Failed to seed test data: %v", err)
		}
	}

	redisClient, err := redis.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warnf("Valkey not available, device status cache and distributed lock disabled: %v", err)
		redisClient = nil
	}

	tasks, err := newTaskQueue(cfg.Queue, redisClient)
	if err != nil {
		logger.Fatalf("Failed to set up task queue: %v", err)
	}

	messageRepo := repository.NewMessageRepository(db)
	jobRepo := repository.NewBulkJobRepository(db)

	// Device stack: one transport shared by the link manager and the invoker.
	transport := device.NewExecTransport(cfg.Device)
	link := device.NewLinkManager(transport, cfg.Device.Serial)
	invoker := device.NewInvoker(transport, cfg.Device.LegacyProtocol)

	guards := device.ChainGuard{device.NewLocalGuard()}
	var statusCache deviceStatusCache
	if redisClient != nil {
		lockTTL := cfg.Device.EffectiveLockTTL()
		if lockTTL != cfg.Device.LockTTL {
			logger.Warnf("DEVICE_LOCK_TTL %v is shorter than one worst-case dispatch, using %v", cfg.Device.LockTTL, lockTTL)
		}
		guards = append(guards, redisClient.NewDeviceLock(lockTTL))
		statusCache = redisClient
	}

	dispatcher := service.NewDispatcher(link, invoker, guards, messageRepo)
	batch := service.NewBatchCoordinator(dispatcher)
	checker := service.NewDeviceChecker(link, guards, statusCache)
	worker := service.NewWorker(messageRepo, jobRepo, dispatcher, batch, checker)

	messageService := service.NewMessageService(
		messageRepo,
		jobRepo,
		tasks,
		statusCache,
		cfg.Dispatch,
		cfg.Monitor.StatusTTL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var consumers sync.WaitGroup
	if cfg.Server.WorkerEnabled {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			logger.Infof("Worker consuming %s queue %q", cfg.Queue.Backend, cfg.Queue.Name)
			if err := tasks.Consume(ctx, worker.Handle); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("Worker stopped: %v", err)
			}
		}()
	} else {
		logger.Infof("Worker disabled, tasks are only enqueued")
	}

	monitor := scheduler.NewScheduler(checker, nil, cfg.Monitor.Interval, cfg.Alert.IterationCount)
	if cfg.Alert.WebhookURL != "" {
		alerts := webhook.NewAlertClient(cfg.Alert)
		logger.Infof("Alert webhook configured: %s", alerts.GetURL())
		monitor = scheduler.NewScheduler(checker, alerts, cfg.Monitor.Interval, cfg.Alert.IterationCount)
	}

	if cfg.Monitor.AutoStart {
		logger.Infof("Auto-starting device monitor...")
		if err := monitor.Start(ctx); err != nil {
			logger.Warnf("Failed to auto-start device monitor: %v", err)
		}
	}

	h := routes.Handlers{
		Health:  handlers.NewHealthHandler(db, redisClient),
		Message: handlers.NewMessageHandler(messageService),
		Bulk:    handlers.NewBulkHandler(messageService, cfg.Dispatch),
		Device:  handlers.NewDeviceHandler(messageService),
		Monitor: handlers.NewMonitorHandler(monitor, ctx, cfg),
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(metrics.HTTPMiddleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			"X-API-Key",
		},
	}))

	routes.RegisterRoutes(e, h, cfg)

	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		logger.Infof("Swagger docs available at http://localhost%s/swagger/index.html", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	if monitor.IsRunning() {
		if err := monitor.Stop(); err != nil {
			logger.Errorf("Error stopping device monitor: %v", err)
		}
	}

	// Cancelling ctx stops the consumer. A task cut short is handed back to
	// the queue and runs again on the next start.
	cancel()
	done := make(chan struct{})
	go func() {
		consumers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warnf("Worker did not stop in time")
	}

	if err := tasks.Close(); err != nil {
		logger.Errorf("Error closing task queue: %v", err)
	}

	if err := db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Errorf("Error closing Valkey: %v", err)
		}
	}

	logger.Infof("Graceful shutdown completed")
}

type deviceStatusCache interface {
	CacheDeviceStatus(ctx context.Context, status domain.DeviceStatus) error
	GetDeviceStatus(ctx context.Context) (*domain.DeviceStatus, error)
}

// newTaskQueue picks the configured backend, falling back to an in-process
// queue when Valkey was requested but is unavailable.
func newTaskQueue(cfg environments.QueueConfig, redisClient *redis.Client) (queue.Queue, error) {
	policy := queue.RetryPolicy{MaxRetries: cfg.MaxRetries, Backoff: cfg.RetryBackoff}

	switch cfg.Backend {
	case "rabbitmq":
		return queue.NewRabbitQueue(cfg.RabbitURL, cfg.Name, policy)
	case "memory":
		return queue.NewMemoryQueue(256, policy), nil
	default:
		if redisClient == nil {
			logger.Warnf("Valkey unavailable, using in-process task queue")
			return queue.NewMemoryQueue(256, policy), nil
		}
		return queue.NewValkeyQueue(redisClient.Valkey(), cfg.Name, policy), nil
	}
}
