package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// errorBody is the uniform error shape: a human-readable message plus
// optional structured details.
type errorBody struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// HTTPErrorHandler renders every error that escapes a handler as the
// {message, details?} JSON shape.  Handlers translate domain errors into
// echo.HTTPError with the right status; anything else is an unexpected
// failure and becomes a logged 500 with a generic message so internals
// never leak to clients.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	body := errorBody{Message: "internal error"}

	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch m := he.Message.(type) {
		case string:
			body.Message = m
		case errorBody:
			body = m
		default:
			body.Message = http.StatusText(status)
		}
	}

	if status >= 500 {
		log.Error().Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Request().URL.Path).
			Msg("unhandled error")
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}
