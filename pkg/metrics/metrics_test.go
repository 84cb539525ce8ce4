package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncDispatch_EmptyKindUsesNone(t *testing.T) {
	before := testutil.ToFloat64(dispatchTotal.WithLabelValues("sent", "none"))

	IncDispatch("sent", "")

	after := testutil.ToFloat64(dispatchTotal.WithLabelValues("sent", "none"))
	if after-before != 1 {
		t.Fatalf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestSetDeviceReady(t *testing.T) {
	SetDeviceReady(true)
	if v := testutil.ToFloat64(deviceReady); v != 1 {
		t.Errorf("expected 1, got %v", v)
	}

	SetDeviceReady(false)
	if v := testutil.ToFloat64(deviceReady); v != 0 {
		t.Errorf("expected 0, got %v", v)
	}
}

func TestHTTPMiddleware_ObservesRoutePattern(t *testing.T) {
	e := echo.New()
	e.Use(HTTPMiddleware())
	e.GET("/api/sms/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/sms/:id", "204"))

	req := httptest.NewRequest(http.MethodGet, "/api/sms/42", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/sms/:id", "204"))
	if after-before != 1 {
		t.Fatalf("expected one observation for the route pattern, got %v", after-before)
	}
}

func TestHandler_ExposesRegisteredMetrics(t *testing.T) {
	Register()
	IncDeviceRecovery()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "adbsms_device_recoveries_total") {
		t.Fatalf("expected recoveries metric in output")
	}
}
