// Package router defines how HTTP routes are registered for the API.
// All application routes live under the /api prefix; operational
// endpoints (health, metrics) sit at the root.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/library-management/internal/config"
	"github.com/iliyamo/library-management/internal/handler"
	"github.com/iliyamo/library-management/internal/middleware"
	"github.com/iliyamo/library-management/internal/model"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Auth    *handler.AuthHandler
	Books   *handler.BookHandler
	Cats    *handler.CategoryHandler
	Loans   *handler.LoanHandler
	Users   *handler.UserHandler
	Reports *handler.ReportHandler
}

// Register mounts all routes on e.  rdb may be nil; rate limiting and
// response caching then run in pass-through mode.
func Register(e *echo.Echo, cfg config.Config, h Handlers, rdb *redis.Client) {
	e.GET("/api/health", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	registerAuth(e, cfg, h.Auth, rdb)
	registerCatalog(e, h.Books, h.Cats, rdb)
	registerLoans(e, cfg, h.Loans)
	registerAdmin(e, cfg, h)
}

func registerAuth(e *echo.Echo, cfg config.Config, a *handler.AuthHandler, rdb *redis.Client) {
	g := e.Group("/api/auth")
	// Login carries the brute-force risk, so only it gets the bucket.
	g.POST("/login", a.Login, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	g.POST("/register", a.Register)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	me := e.Group("/api/auth", middleware.JWTAuth(cfg.JWTSecret))
	me.GET("/me", a.Me)
	me.PUT("/password", a.ChangePassword)
}

func registerCatalog(e *echo.Echo, b *handler.BookHandler, cat *handler.CategoryHandler, rdb *redis.Client) {
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Browsing is open to guests; only mutation needs a session.
	e.GET("/api/books", b.List, cache)
	e.GET("/api/books/search", b.Search, cache)
	e.GET("/api/books/:id", b.Get, cache)
	e.GET("/api/categories", cat.List, cache)
}

func registerLoans(e *echo.Echo, cfg config.Config, l *handler.LoanHandler) {
	g := e.Group("/api/loans", middleware.JWTAuth(cfg.JWTSecret))
	g.POST("", l.Create)
	g.GET("", l.List)
	g.PUT("/:id/return", l.Return)
	g.GET("/all", l.ListAll, middleware.RequireRole(model.RoleAdmin))
}

func registerAdmin(e *echo.Echo, cfg config.Config, h Handlers) {
	admin := e.Group("/api", middleware.JWTAuth(cfg.JWTSecret), middleware.RequireRole(model.RoleAdmin))

	admin.POST("/books", h.Books.Create)
	admin.PUT("/books/:id", h.Books.Update)
	admin.DELETE("/books/:id", h.Books.Delete)

	admin.POST("/categories", h.Cats.Create)
	admin.PUT("/categories/:id", h.Cats.Update)
	admin.DELETE("/categories/:id", h.Cats.Delete)

	admin.GET("/users", h.Users.List)
	admin.GET("/users/:id", h.Users.Get)
	admin.PUT("/users/:id", h.Users.Update)
	admin.DELETE("/users/:id", h.Users.Delete)

	admin.GET("/reports/loans.csv", h.Reports.Loans)
	admin.GET("/reports/books.csv", h.Reports.Books)
}
