package middlewares

import (
	"crypto/subtle"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/Ammly/AdbSms/pkg/response"
)

const (
	APIKeyHeader = "X-API-Key"
	APIKeyQuery  = "api_key"
)

// secureCompare compares two strings in a way that is safer against timing attacks.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// APIKeyAuth accepts the key from the X-API-Key header or the api_key query
// parameter. A missing key is 401, a wrong one 403.
func APIKeyAuth(apiKey string) echo.MiddlewareFunc {
	// If the API key is not configured, treat this as a server-side misconfiguration.
	if apiKey == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return response.InternalServerError(
					c,
					fmt.Errorf("API key is not configured on the server"),
				)
			}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get(APIKeyHeader)
			if token == "" {
				token = c.QueryParam(APIKeyQuery)
			}

			if token == "" {
				return response.Unauthorized(c)
			}
			if !secureCompare(token, apiKey) {
				return response.Forbidden(c)
			}

			return next(c)
		}
	}
}
