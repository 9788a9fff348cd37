package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"ygodeck/internal/auth"
	"ygodeck/internal/cache"
	"ygodeck/internal/catalog"
	"ygodeck/internal/config"
	"ygodeck/internal/db"
	"ygodeck/internal/handler"
	"ygodeck/internal/logging"
	"ygodeck/internal/model"
	"ygodeck/internal/repository"
	"ygodeck/internal/router"
	"ygodeck/internal/service"
)

// @title ygodeck API
// @version 1.0
// @description Yu-Gi-Oh! deck building API: card search with banlist status, and deck storage with construction rule checks.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	logger := logging.NewJSON(logging.ParseLevel(cfg.LogLevel))
	logging.SetDefault(logger)
	defer logger.Sync() //nolint:errcheck

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		logger.Error("database init", "error", err)
		os.Exit(1)
	}

	if cfg.ResetDB {
		logger.Warn("RESET_DB set, dropping tables")
		for _, table := range []interface{}{&model.DeckCard{}, &model.Deck{}, &model.User{}} {
			if err := gormDB.Migrator().DropTable(table); err != nil {
				logger.Warn("drop table", "error", err)
			}
		}
	}

	if err := gormDB.AutoMigrate(&model.User{}, &model.Deck{}, &model.DeckCard{}); err != nil {
		logger.Error("auto-migrate", "error", err)
		os.Exit(1)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, logger)
	defer cacheClient.Close()
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		logger.Warn("redis unreachable, caching disabled until it recovers", "addr", cfg.RedisAddr, "error", err)
	}
	cancelPing()

	catalogClient := catalog.NewClient(catalog.ClientConfig{
		BaseURL:       cfg.CatalogBaseURL,
		Timeout:       cfg.CatalogTimeout,
		MaxRetries:    cfg.CatalogMaxRetries,
		BanlistFormat: cfg.CatalogBanlistFormat,
		Logger:        logger,
	})

	// Repositories
	userRepo := repository.NewUserRepository(gormDB)
	deckRepo := repository.NewDeckRepository(gormDB)

	// Auth
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore)
	cardService := service.NewCardService(catalogClient, cacheClient, service.CardServiceConfig{
		SearchTTL:  cfg.CardCacheTTL,
		BanlistTTL: cfg.BanlistCacheTTL,
	}, logger)
	deckService := service.NewDeckService(deckRepo)
	userService := service.NewUserService(userRepo, cacheClient)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, jwtService, router.Handlers{
		Auth: handler.NewAuthHandler(authService, logger),
		Card: handler.NewCardHandler(cardService, logger),
		Deck: handler.NewDeckHandler(deckService, logger),
		User: handler.NewUserHandler(userService, logger),
	}, logger)

	addr := ":" + cfg.ServerPort
	go func() {
		logger.Info("http server starting", "addr", addr, "swagger", "/swagger/index.html")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("http server stopped")
}
