package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pulseboard/notifications/internal/api"
	"github.com/pulseboard/notifications/internal/config"
	"github.com/pulseboard/notifications/internal/notify"
	"github.com/pulseboard/notifications/internal/perms"
	"github.com/pulseboard/notifications/internal/store"
	ws "github.com/pulseboard/notifications/internal/websocket"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize PostgreSQL
	ctx := context.Background()
	pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()
	logger.Info("connected to PostgreSQL")

	// Run database migrations
	if err := pgStore.RunMigrations(ctx, "migrations"); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	// WebSocket lifecycle feed
	hub := ws.NewHub(logger)
	go hub.Run()

	// Lifecycle event publishers: websocket always, Redis stream when
	// configured.
	publishers := notify.MultiPublisher{hub}
	if cfg.RedisURL != "" {
		redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		logger.Info("connected to Redis")
		publishers = append(publishers, notify.NewRedisPublisher(redisStore.Client(), logger))
	}

	svc := notify.NewService(pgStore, publishers, logger)
	agg := perms.NewAggregator(perms.CollectionCardPermissions{}, perms.AllowAllGate{})

	// Setup router
	router := api.NewRouter(pgStore, svc, agg, hub)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
