package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/go-inventario/auth"
	"github.com/diewo77/go-inventario/internal/config"
	"github.com/diewo77/go-inventario/internal/db"
	"github.com/diewo77/go-inventario/internal/handlers"
	"github.com/diewo77/go-inventario/internal/logging"
	"github.com/diewo77/go-inventario/internal/metrics"
	"github.com/diewo77/go-inventario/internal/services"
	"github.com/diewo77/go-inventario/internal/store"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.App.Dev, cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	dbConn, err := db.Connect(cfg.Database, log)
	if err != nil {
		return err
	}

	if *migrateOnlyFlag {
		if err := db.Migrate(dbConn, cfg.Database); err != nil {
			return fmt.Errorf("migration: %w", err)
		}
		log.Info("migrations completed")
		return nil
	}
	if *seedOnlyFlag {
		if err := db.Seed(dbConn, log); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		log.Info("seed completed")
		return nil
	}

	if cfg.App.Migrations {
		if err := db.Migrate(dbConn, cfg.Database); err != nil {
			return fmt.Errorf("migration: %w", err)
		}
		log.Info("migrations completed")
	}
	if cfg.App.Seed {
		if err := db.Seed(dbConn, log); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	auth.Configure(auth.Options{
		Secret:       cfg.Session.Secret,
		TTL:          cfg.Session.TTL,
		SecureCookie: cfg.Session.SecureCookie,
	})

	m := metrics.New()
	st := store.New(dbConn, log.Named("store"))
	routerCfg := handlers.NewRouterConfig(st, m, services.RestockPolicy(cfg.Sales.RestockOnDelete), log)
	app := NewApp(dbConn, routerCfg, m, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.Bool("dev", cfg.App.Dev),
			zap.String("restock_on_delete", cfg.Sales.RestockOnDelete),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
		log.Info("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped gracefully")
	return nil
}
