package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness probe.  It requires no authentication and
// touches no dependencies.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
