package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/nawrec86/school-management-backend/internal/auth"
	"github.com/nawrec86/school-management-backend/internal/config"
	"github.com/nawrec86/school-management-backend/internal/db"
	internalhttp "github.com/nawrec86/school-management-backend/internal/http"
	"github.com/nawrec86/school-management-backend/internal/metrics"
	"github.com/nawrec86/school-management-backend/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := repository.NewStore(pool)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	authService := auth.NewService(store, cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL).
		WithMetrics(collector).
		WithLogger(logger)

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		authService = authService.WithThrottle(
			auth.NewLoginThrottle(redisClient, cfg.LoginMaxAttempts, cfg.LoginAttemptWindow),
		)
		defer redisClient.Close()
	}

	if cfg.SeedFile != "" {
		if err := authService.SeedFromFile(ctx, cfg.SeedFile); err != nil {
			logger.Error("seed failed", "error", err)
			os.Exit(1)
		}
	}

	server := internalhttp.NewServer(cfg, authService, store, collector, registry)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
