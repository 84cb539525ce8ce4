package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adbsms_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "code"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adbsms_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "code"},
	)

	// Dispatch
	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adbsms_dispatch_total",
			Help: "Dispatch outcomes by terminal status and failure kind.",
		},
		[]string{"result", "kind"},
	)
	invocationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adbsms_invocation_duration_seconds",
			Help:    "Time spent in a single send invocation on the device.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
		},
	)
	batchItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adbsms_batch_items_total",
			Help: "Batch rows processed by result.",
		},
		[]string{"result"},
	)

	// Device
	deviceRecoveries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adbsms_device_recoveries_total",
			Help: "Number of adb server restarts performed to recover the device link.",
		},
	)
	deviceReady = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "adbsms_device_ready",
			Help: "1 when the last readiness check found the device usable.",
		},
	)

	// Tasks
	tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adbsms_tasks_total",
			Help: "Queue tasks handled by kind and result.",
		},
		[]string{"kind", "result"},
	)
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,

			dispatchTotal,
			invocationDuration,
			batchItems,

			deviceRecoveries,
			deviceReady,

			tasksTotal,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// --- HTTP ---
func ObserveHTTPRequest(method, route, code string, d time.Duration) {
	httpRequests.WithLabelValues(method, route, code).Inc()
	httpDuration.WithLabelValues(method, route, code).Observe(d.Seconds())
}

// --- Dispatch ---
func IncDispatch(result, kind string) {
	if kind == "" {
		kind = "none"
	}
	dispatchTotal.WithLabelValues(result, kind).Inc()
}
func ObserveInvocation(d time.Duration) { invocationDuration.Observe(d.Seconds()) }
func IncBatchItem(result string)        { batchItems.WithLabelValues(result).Inc() }

// --- Device ---
func IncDeviceRecovery() { deviceRecoveries.Inc() }
func SetDeviceReady(ready bool) {
	if ready {
		deviceReady.Set(1)
		return
	}
	deviceReady.Set(0)
}

// --- Tasks ---
func IncTask(kind, result string) { tasksTotal.WithLabelValues(kind, result).Inc() }
