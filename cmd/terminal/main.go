package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/pharmakit/pos-terminal/api/controllers"
	"github.com/pharmakit/pos-terminal/api/routes"
	"github.com/pharmakit/pos-terminal/internal/cart"
	"github.com/pharmakit/pos-terminal/internal/catalog"
	"github.com/pharmakit/pos-terminal/internal/checkout"
	"github.com/pharmakit/pos-terminal/internal/customers"
	"github.com/pharmakit/pos-terminal/pkg/config"
	"github.com/pharmakit/pos-terminal/pkg/logger"
	"github.com/pharmakit/pos-terminal/pkg/metrics"
	"github.com/pharmakit/pos-terminal/pkg/posapi"
	"github.com/pharmakit/pos-terminal/pkg/redis"
)

const shutdownGrace = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "terminal"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "terminal",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	backend, err := posapi.NewClient(cfg.Backend, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create backend client", err)
		os.Exit(1)
	}

	var cacheClient *redis.Client
	var cache redis.Cache
	var pinger controllers.Pinger
	if cfg.Redis.Enabled() {
		cacheClient, err = redis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		cache = cacheClient
		pinger = cacheClient
	}

	registry := prometheus.NewRegistry()
	searchMetrics := metrics.NewSearchMetrics(registry)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	searcher, err := catalog.NewSearcher(backend, cache, cfg.Search, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog searcher", err)
		os.Exit(1)
	}

	cartStore := cart.NewStore()

	orchestrator, err := checkout.NewOrchestrator(cartStore, backend, logg, checkoutMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout orchestrator", err)
		os.Exit(1)
	}

	directory, err := customers.NewDirectory(backend, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create customer directory", err)
		os.Exit(1)
	}
	// The directory is best-effort at boot; autofill simply stays empty
	// until a later refresh succeeds.
	if err := directory.Refresh(context.Background()); err != nil {
		logg.Warn(context.Background(), "customer directory preload failed")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting terminal server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, pinger, searcher, cartStore, orchestrator, directory, searchMetrics, registry),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "terminal server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		closeErr := server.Shutdown(shutdownCtx)
		if cacheClient != nil {
			closeErr = multierr.Append(closeErr, cacheClient.Close())
		}
		if closeErr != nil {
			logg.Error(ctx, "shutdown finished with errors", closeErr)
			os.Exit(1)
		}
		logg.Info(ctx, "shutdown complete")
	}
}
