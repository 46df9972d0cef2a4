package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-management/internal/config"
)

func rateCtx(t *testing.T, userID uint64) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "203.0.113.7:4242"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/auth/login")
	if userID != 0 {
		c.Set(CtxUserID, userID)
	}
	return c
}

func TestBuildRateKeyStrategies(t *testing.T) {
	cfg := config.RateLimitConfig{Prefix: "rl"}

	cases := []struct {
		strategy string
		userID   uint64
		want     string
	}{
		{"ip", 0, "rl:ip:203.0.113.7"},
		{"user", 0, "rl:user:anon"},
		{"user", 42, "rl:user:42"},
		{"route", 0, "rl:route:POST /api/auth/login"},
		{"ip_route", 0, "rl:ip:203.0.113.7:route:POST /api/auth/login"},
		{"ip_user", 42, "rl:ip:203.0.113.7:user:42"},
		{"user_route", 42, "rl:user:42:route:POST /api/auth/login"},
		{"everything", 42, "rl:ip:203.0.113.7:user:42:route:POST /api/auth/login"},
	}
	for _, tc := range cases {
		cfg.KeyStrategy = tc.strategy
		if got := buildRateKey(cfg, rateCtx(t, tc.userID)); got != tc.want {
			t.Fatalf("strategy %q: got %q, want %q", tc.strategy, got, tc.want)
		}
	}
}

func TestAsInt64(t *testing.T) {
	if got := asInt64(int64(7)); got != 7 {
		t.Fatalf("int64: got %d", got)
	}
	if got := asInt64("42"); got != 42 {
		t.Fatalf("string: got %d", got)
	}
	if got := asInt64(nil); got != 0 {
		t.Fatalf("nil: got %d", got)
	}
}

func TestTokenBucketDisabledPassesThrough(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: false}
	c := rateCtx(t, 0)
	h := NewTokenBucket(cfg, nil)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if code := c.Response().Status; code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", code)
	}
}
