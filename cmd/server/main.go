package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"mediconnect-api/internal/config"
	"mediconnect-api/internal/handler"
	"mediconnect-api/internal/middleware"
	"mediconnect-api/internal/scheduling"
	"mediconnect-api/internal/store"
	"mediconnect-api/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)

	// database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(context.Background()); err != nil {
		logger.Error("db ping", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to postgres")

	// run migrations
	migration := filepath.Join(cfg.MigrationsDir, "001_init.sql")
	if sql, err := os.ReadFile(migration); err != nil {
		logger.Warn("migration file not found, skipping", "path", migration, "error", err)
	} else if _, err := pool.Exec(context.Background(), string(sql)); err != nil {
		logger.Warn("migration failed", "error", err)
	} else {
		logger.Info("migration applied")
	}

	st := store.New(pool)
	schedules := scheduling.NewScheduleService(st, st, logger)
	generator := scheduling.NewGenerator(st, st, st, logger)
	availability := scheduling.NewAvailabilityService(st, st)
	bookings := scheduling.NewBookingService(st, st, st, logger)

	h := handler.New(st, schedules, generator, availability, bookings, cfg.JWTSecret, logger)
	rl := middleware.NewRateLimiter(cfg.AuthRatePerSecond, cfg.AuthRateBurst)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Routes(rl),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "error", err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
