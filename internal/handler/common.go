package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-management/internal/middleware"
)

// pageResponse is the envelope shared by every paginated listing.
type pageResponse struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
	Items    any   `json:"items"`
}

// errUnauthenticated signals that the identity middleware did not run or
// produced no usable user ID.
var errUnauthenticated = errors.New("unauthenticated")

// callerID extracts the authenticated user ID stored by the JWT middleware.
func callerID(c echo.Context) (uint64, error) {
	if v, ok := c.Get(middleware.CtxUserID).(uint64); ok && v != 0 {
		return v, nil
	}
	return 0, errUnauthenticated
}

// callerRole extracts the authenticated role, or "" when absent.
func callerRole(c echo.Context) string {
	if v, ok := c.Get(middleware.CtxRole).(string); ok {
		return v
	}
	return ""
}

// parsePage reads page/pageSize query parameters, clamping to sane
// bounds.  defSize matches the original list defaults per endpoint.
func parsePage(c echo.Context, defSize int) (page, pageSize int) {
	page = 1
	pageSize = defSize
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v >= 1 {
		page = v
	}
	if v, err := strconv.Atoi(c.QueryParam("pageSize")); err == nil && v >= 1 {
		pageSize = v
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// parseID parses a numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

// parseTimeParam accepts RFC3339 or plain dates for from/to filters.
func parseTimeParam(s string) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, true
		}
	}
	return nil, false
}
