package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/library-management/internal/utils" // access token verification
)

// Context keys populated by JWTAuth for downstream handlers.
const (
	CtxUserID   = "user_id"
	CtxRole     = "role"
	CtxEmail    = "email"
	CtxFullName = "full_name"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the caller's identity into the request context.  The
// provided secret must match the one used when issuing tokens.  This
// middleware wraps every protected route so handlers can read the
// identity via c.Get(CtxUserID) and c.Get(CtxRole) without touching the
// database.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header starts with "Bearer " followed by the JWT.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "authentication required"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Signature mismatch, wrong algorithm, malformed input and
			// expiry all come back as utils.ErrInvalidToken.
			id, err := utils.VerifyAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid or expired token"})
			}

			c.Set(CtxUserID, id.UserID)
			c.Set(CtxRole, id.Role)
			c.Set(CtxEmail, id.Email)
			c.Set(CtxFullName, id.FullName)
			return next(c)
		}
	}
}
