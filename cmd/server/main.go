package main

import (
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/library-management/internal/config"
	"github.com/iliyamo/library-management/internal/database"
	"github.com/iliyamo/library-management/internal/handler"
	"github.com/iliyamo/library-management/internal/logger"
	appmw "github.com/iliyamo/library-management/internal/middleware"
	"github.com/iliyamo/library-management/internal/queue"
	"github.com/iliyamo/library-management/internal/repository"
	"github.com/iliyamo/library-management/internal/router"
	"github.com/iliyamo/library-management/internal/validation"
)

func main() {
	// .env is a local-development convenience; in production the
	// variables come from the environment itself.
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init("library-api", cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	// Nil when Redis is unreachable: rate limiting and caching then
	// degrade to pass-through instead of blocking startup.
	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	books := repository.NewBookRepo(db)
	cats := repository.NewCategoryRepo(db)
	loans := repository.NewLoanRepo(db)
	reports := repository.NewReportRepo(db)

	h := router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, users, tokens),
		Books:   handler.NewBookHandler(books),
		Cats:    handler.NewCategoryHandler(cats),
		Loans:   handler.NewLoanHandler(cfg, loans, books),
		Users:   handler.NewUserHandler(users, tokens),
		Reports: handler.NewReportHandler(reports),
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Use(appmw.RequestLogger())
	e.Use(appmw.Metrics())

	router.Register(e, cfg, h, rdb)

	go func() {
		if err := queue.StartLoanConsumer(); err != nil {
			log.Warn().Err(err).Msg("loan event consumer stopped")
		}
	}()

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
	if err := e.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
