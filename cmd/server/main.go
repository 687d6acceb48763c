package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	logrus "github.com/sirupsen/logrus"

	"courier_ledger/internal/cache"
	"courier_ledger/internal/config"
	"courier_ledger/internal/controllers"
	"courier_ledger/internal/ledger"
	"courier_ledger/internal/logger"
	"courier_ledger/internal/middleware"
	"courier_ledger/internal/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}

	// Structured logging to stdout and a rotating file
	accessLog := logger.Setup(cfg.LogFile, cfg.LogLevel)

	db, err := config.OpenDB(cfg.DB, logger.GormLogger(), 5)
	if err != nil {
		logrus.Fatalf("database: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		logrus.Fatalf("auto-migration failed: %v", err)
	}

	var (
		c          cache.Cache
		ledgerOpts = []ledger.Option{ledger.WithDeliveryFee(cfg.DeliveryFee)}
	)
	if cfg.RedisAddress != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddress, 5)
		cancel()
		if err != nil {
			logrus.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		c = cache.NewRedis(rdb, cfg.CacheTTL)
		ledgerOpts = append(ledgerOpts, ledger.WithLocker(cache.NewRedisLocker(rdb, 5*time.Second)))
		logrus.WithField("addr", cfg.RedisAddress).Info("using redis cache and driver locks")
	} else {
		c = cache.NewMemory(cfg.CacheTTL)
		logrus.Info("using in-process cache")
	}

	registry := ledger.NewRegistry(db, c, ledger.WithPhoneRegion(cfg.PhoneRegion))
	l := ledger.NewLedger(registry, ledgerOpts...)
	tokens := middleware.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	h := controllers.NewHandler(registry, l, tokens, cfg.AdminKeyHash)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      routes.SetupRouter(h, tokens, accessLog),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("server running at %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("server forced to shutdown: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logrus.Info("server exited")
}
