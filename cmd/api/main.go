// Command api is the PrepWise API server.
//
// Usage:
//
//	prepwise-api
//	API_PORT=8080 prepwise-api

// @title PrepWise API
// @version 1.0.0
// @description Disaster-preparedness backend: emergency alerts with push fan-out, device registry and scored decision-tree drills.
// @host localhost:8000
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/prepwise/prepwise-api/internal/alert"
	"github.com/prepwise/prepwise-api/internal/api"
	"github.com/prepwise/prepwise-api/internal/api/handler"
	"github.com/prepwise/prepwise-api/internal/auth"
	"github.com/prepwise/prepwise-api/internal/cache"
	"github.com/prepwise/prepwise-api/internal/config"
	"github.com/prepwise/prepwise-api/internal/db"
	"github.com/prepwise/prepwise-api/internal/device"
	"github.com/prepwise/prepwise-api/internal/drill"
	"github.com/prepwise/prepwise-api/internal/notifications"

	_ "github.com/prepwise/prepwise-api/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}

	level := slog.LevelInfo
	if cfg != nil && cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	defer appCache.Close()
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// Push provider
	expo := notifications.NewExpoClient(notifications.ExpoConfig{
		URL:         cfg.ExpoPushURL,
		AccessToken: cfg.ExpoAccessToken,
		Timeout:     cfg.PushTimeout,
		BatchRate:   cfg.PushBatchRate,
	}, logger)
	logger.Info("Expo push client ready",
		"url", cfg.ExpoPushURL,
		"authenticated", cfg.ExpoAccessToken != "")

	// Domain services
	devices := device.NewStore(pool)
	alerts := alert.NewService(
		alert.NewStore(pool),
		notifications.NewResolver(devices, logger),
		expo,
		devices,
		logger,
	).WithNotifyTimeout(cfg.AlertNotifyBudget)
	drills := drill.NewService(drill.NewStore(pool), logger)

	h := handler.New(handler.Deps{
		DB:      pool,
		Cache:   appCache,
		Alerts:  alerts,
		Devices: devices,
		Push:    expo,
		Drills:  drills,
		Logger:  logger,
	})
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer)

	// Create router
	router := api.NewRouter(h, tokens, cfg, logger)

	// Create HTTP server. Alert fan-out is bounded by AlertNotifyBudget, which
	// Validate keeps below the write timeout.
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting PrepWise API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
