package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// HTTPMiddleware records request counts and latency per route pattern.
func HTTPMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			code := strconv.Itoa(c.Response().Status)
			ObserveHTTPRequest(c.Request().Method, route, code, time.Since(start))

			return nil
		}
	}
}
