package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chorespec/chorespec/internal/config"
	"github.com/chorespec/chorespec/internal/database"
	"github.com/chorespec/chorespec/internal/logging"
	"github.com/chorespec/chorespec/internal/middleware"
	"github.com/chorespec/chorespec/internal/schedule"
	"github.com/chorespec/chorespec/internal/server"
)

func main() {
	// Missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info").Error("load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel)
	logger.Info("starting chorespec", "port", cfg.Port, "db", cfg.DBPath)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	middleware.RegisterMetrics()

	srv := server.New(db, cfg.CORSOrigins, logger)

	scheduler := schedule.NewScheduler(srv.Generator(), srv.Broker(), cfg.ResetHour, logger.With("component", "scheduler"))
	if err := scheduler.Start(); err != nil {
		logger.Error("start scheduler", "error", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	// Keep the login rate limiter's window map from growing forever.
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-cleanupDone:
				return
			}
		}
	}()
	defer close(cleanupDone)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE streams stay open indefinitely
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}
}
