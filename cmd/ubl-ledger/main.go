// Copyright 2025 Certen Protocol
//
// ubl-ledger serves containers' append-only chains over HTTP, addressed by
// the container_id in each request path.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ubl-core/ledger-core/pkg/config"
	"github.com/ubl-core/ledger-core/pkg/kvdb"
	"github.com/ubl-core/ledger-core/pkg/ledger"
	"github.com/ubl-core/ledger-core/pkg/logging"
	"github.com/ubl-core/ledger-core/pkg/server"
	"github.com/ubl-core/ledger-core/pkg/storage/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger = logger.WithComponent("ubl-ledger").WithContainer(cfg.ContainerID)

	kv, closeKV, err := openStorage(cfg.StorageURL)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeKV()

	store := ledger.NewStore(kv)
	srv := server.New(store, logger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ListenPort),
		Handler: srv.Handler(),
	}

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: promhttp.Handler(),
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		logger.Info("metrics listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownTimeout := cfg.ShutdownTimeout.Duration()
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("http server shutdown")
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("metrics server shutdown")
	}
	return nil
}

// openStorage selects a ledger.KV backend from storage_url: "memory://"
// for an in-process cometbft-db memdb, or a postgres:// DSN for the
// relational backend.
func openStorage(storageURL string) (ledger.KV, func(), error) {
	noop := func() {}

	switch {
	case storageURL == "" || storageURL == "memory://":
		return kvdb.NewKVAdapter(dbm.NewMemDB()), noop, nil

	case strings.HasPrefix(storageURL, "postgres://"), strings.HasPrefix(storageURL, "postgresql://"):
		client, err := postgres.NewClient(storageURL)
		if err != nil {
			return nil, noop, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := client.MigrateUp(ctx); err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("migrate: %w", err)
		}
		return client, func() { client.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("unrecognized storage_url scheme: %s", storageURL)
	}
}
