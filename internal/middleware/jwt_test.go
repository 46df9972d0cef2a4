package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-management/internal/utils"
)

const testSecret = "test-secret"

func doRequest(t *testing.T, mw echo.MiddlewareFunc, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/loans", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec, c
}

func TestJWTAuthMissingHeader(t *testing.T) {
	rec, _ := doRequest(t, JWTAuth(testSecret), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rec.Code)
	}
}

func TestJWTAuthBadToken(t *testing.T) {
	rec, _ := doRequest(t, JWTAuth(testSecret), "Bearer not-a-token")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rec.Code)
	}
}

func TestJWTAuthWrongSecret(t *testing.T) {
	at, err := utils.NewAccessToken("other-secret", utils.Identity{UserID: 1, Role: "user"}, 1)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	rec, _ := doRequest(t, JWTAuth(testSecret), "Bearer "+at.Token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rec.Code)
	}
}

func TestJWTAuthValidTokenSetsIdentity(t *testing.T) {
	id := utils.Identity{UserID: 9, Role: "admin", Email: "a@example.com", FullName: "Ada"}
	at, err := utils.NewAccessToken(testSecret, id, 1)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	rec, c := doRequest(t, JWTAuth(testSecret), "Bearer "+at.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if got, _ := c.Get(CtxUserID).(uint64); got != 9 {
		t.Fatalf("user_id in context: got %v", c.Get(CtxUserID))
	}
	if got, _ := c.Get(CtxRole).(string); got != "admin" {
		t.Fatalf("role in context: got %v", c.Get(CtxRole))
	}
	if got, _ := c.Get(CtxEmail).(string); got != "a@example.com" {
		t.Fatalf("email in context: got %v", c.Get(CtxEmail))
	}
}

func TestRequireRole(t *testing.T) {
	run := func(role string, allowed ...string) int {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if role != "" {
			c.Set(CtxRole, role)
		}
		h := RequireRole(allowed...)(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		if err := h(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		return rec.Code
	}

	if code := run("admin", "admin"); code != http.StatusOK {
		t.Fatalf("admin on admin route: got %d, want 200", code)
	}
	if code := run("user", "admin"); code != http.StatusForbidden {
		t.Fatalf("user on admin route: got %d, want 403", code)
	}
	if code := run("", "admin"); code != http.StatusForbidden {
		t.Fatalf("no role on admin route: got %d, want 403", code)
	}
	if code := run("user", "admin", "user"); code != http.StatusOK {
		t.Fatalf("user on shared route: got %d, want 200", code)
	}
}
