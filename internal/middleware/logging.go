package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// RequestLogger logs one structured line per request: method, path,
// status, duration and the caller identity when present.  Errors are
// passed through untouched so the central error handler still renders
// the response.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Let the error handler set the status before logging it.
				c.Error(err)
			}

			ev := log.Info()
			status := c.Response().Status
			if status >= 500 {
				ev = log.Error()
			} else if status >= 400 {
				ev = log.Warn()
			}
			ev = ev.
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", status).
				Dur("duration", time.Since(start)).
				Str("remote_ip", c.RealIP())
			if uid, ok := c.Get(CtxUserID).(uint64); ok {
				ev = ev.Uint64("user_id", uid)
			}
			ev.Msg("request")
			return nil
		}
	}
}
