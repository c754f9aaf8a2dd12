package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"custom-url-shortener/internal/accounts"
	"custom-url-shortener/internal/api"
	"custom-url-shortener/internal/auth"
	"custom-url-shortener/internal/cache"
	"custom-url-shortener/internal/config"
	"custom-url-shortener/internal/db"
	"custom-url-shortener/internal/logger"
	"custom-url-shortener/internal/redirect"
	"custom-url-shortener/internal/shortener"
	"custom-url-shortener/internal/stats"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load application configuration
	if err := config.LoadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := config.AppConfig

	logger.Init(logger.Options{Env: cfg.AppEnv, Level: cfg.LogLevel, File: cfg.LogFile})
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Info().Msg("Configuration loaded successfully.")

	// Initialize database connection
	logger.Info().Str("dialect", cfg.DatabaseDialect).Str("url", cfg.RedactedDatabaseURL()).Msg("Connecting to database")
	conn, err := db.Open(cfg.DatabaseDialect, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer conn.Close()
	store := db.NewStore(conn)
	logger.Info().Msg("Database connection successful and schema migrated.")

	var resolveCache redirect.Cache
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.CacheTTL)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, resolving without cache")
		} else {
			defer rc.Close()
			resolveCache = rc
			logger.Info().Str("addr", cfg.RedisAddr).Msg("Resolve cache enabled")
		}
	}

	generator, err := shortener.NewGenerator(cfg.ShortCodeLength)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid short code length")
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	handler := api.NewHandler(
		store,
		shortener.NewAllocator(store, generator, shortener.DefaultMaxAttempts),
		redirect.NewResolver(store, resolveCache),
		stats.NewService(store, nil),
		accounts.NewService(store, tokens),
	)

	srv := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           api.SetupRouter(handler, tokens),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
}
