package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockflow/internal/config"
	"stockflow/internal/db"
	"stockflow/internal/events"
	httpapi "stockflow/internal/http"
	"stockflow/internal/idempotency"
	"stockflow/internal/memstore"
	"stockflow/internal/repository"
	"stockflow/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})).
		With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	var store service.Store
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		store = memstore.New()
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{})
		if err != nil {
			return err
		}
		defer pool.Close()
		if _, err := db.RunMigrations(ctx, pool, logger); err != nil {
			return err
		}
		store = repository.New(pool)
	}

	var publisher service.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.ServiceName)
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Warn("close kafka writer", "err", err)
			}
		}()
		publisher = kp
		logger.Info("publishing events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	var guard httpapi.IdempotencyGuard
	if cfg.RedisAddr != "" {
		rdb := idempotency.NewClient(cfg.RedisAddr)
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "err", err)
		}
		guard = idempotency.NewGuard(rdb)
	}

	svc := service.New(store, publisher, logger)
	handler := httpapi.NewHandler(svc, guard, logger)
	router := httpapi.NewRouter(handler, cfg.RequestTimeout)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("force close failed", "err", closeErr)
		}
	}
	return nil
}
