// Package response writes the JSON envelopes shared by every API handler.
package response

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Ammly/AdbSms/internal/domain"
	"github.com/Ammly/AdbSms/pkg/logger"
)

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type PaginatedResponse struct {
	Success    bool  `json:"success"`
	Data       any   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalCount int64 `json:"totalCount"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
}

func success(c echo.Context, code int, message string, data any) error {
	return c.JSON(code, SuccessResponse{Success: true, Message: message, Data: data})
}

func failure(c echo.Context, code int, message string) error {
	return c.JSON(code, ErrorResponse{Success: false, Error: message})
}

func Ok(c echo.Context, data any) error {
	return success(c, http.StatusOK, "", data)
}

func OkWithMessage(c echo.Context, message string, data any) error {
	return success(c, http.StatusOK, message, data)
}

// Accepted is returned when work was queued rather than done.
func Accepted(c echo.Context, message string, data any) error {
	return success(c, http.StatusAccepted, message, data)
}

func BadRequest(c echo.Context, err error) error {
	return failure(c, http.StatusBadRequest, err.Error())
}

func BadRequestWithMessage(c echo.Context, message string) error {
	return failure(c, http.StatusBadRequest, message)
}

func Unauthorized(c echo.Context) error {
	return failure(c, http.StatusUnauthorized, "API key is missing")
}

func Forbidden(c echo.Context) error {
	return failure(c, http.StatusForbidden, "Invalid API key")
}

func NotFound(c echo.Context, message string) error {
	return failure(c, http.StatusNotFound, message)
}

// InternalServerError logs err with the request path; the client gets the
// error text as well since the API is operator facing.
func InternalServerError(c echo.Context, err error) error {
	logger.Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return failure(c, http.StatusInternalServerError, err.Error())
}

// StatusFor maps service errors onto HTTP codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMessageNotFound), errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyTerminal):
		return http.StatusConflict
	case errors.Is(err, domain.ErrDeviceUnreachable), errors.Is(err, domain.ErrTransportFatal):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromError writes err with the code StatusFor picks.
func FromError(c echo.Context, err error) error {
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		return InternalServerError(c, err)
	}
	return failure(c, code, err.Error())
}

// Paginated writes one page of a list. A non-positive pageSize is treated as 1.
func Paginated(c echo.Context, data any, page, pageSize int, totalCount int64) error {
	if pageSize <= 0 {
		pageSize = 1
	}

	totalPages := int((totalCount + int64(pageSize) - 1) / int64(pageSize))

	return c.JSON(http.StatusOK, PaginatedResponse{
		Success:    true,
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	})
}
