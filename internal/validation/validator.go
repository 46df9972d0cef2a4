// Package validation wires go-playground/validator into echo so handlers
// can call c.Validate(&req) on bound request bodies.
package validation

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts a validator.Validate instance to echo's Validator
// interface.  Struct tags on the request DTOs describe the rules.
type Validator struct {
	validate *validator.Validate
}

// New returns a Validator ready to be assigned to echo.Echo.Validator.
func New() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator.  Failures become 400 responses in
// the standard {message, details?} error shape.
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request").SetInternal(err)
	}
	return nil
}
