package handlers

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Ammly/AdbSms/pkg/response"
)

// serviceError maps service errors onto HTTP responses.
func serviceError(c echo.Context, err error) error {
	return response.FromError(c, err)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id must be a positive integer")
	}
	return id, nil
}

// parsePaginationParams reads page and per_page (pageSize is accepted too).
func parsePaginationParams(c echo.Context, maxPageSize int) (int, int, error) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
	)

	pageStr := c.QueryParam("page")
	pageSizeStr := c.QueryParam("per_page")
	if pageSizeStr == "" {
		pageSizeStr = c.QueryParam("pageSize")
	}

	page := defaultPage
	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
		page = p
	}

	pageSize := defaultPageSize
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if pageSizeStr != "" {
		ps, err := strconv.Atoi(pageSizeStr)
		if err != nil || ps <= 0 || ps > maxPageSize {
			return 0, 0, fmt.Errorf("per_page must be between 1 and %d", maxPageSize)
		}
		pageSize = ps
	}

	return page, pageSize, nil
}
