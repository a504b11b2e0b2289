package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/opsforge/analytics-engine/internal/config"
	"github.com/opsforge/analytics-engine/internal/metrics"
	"github.com/opsforge/analytics-engine/internal/spool"
	"github.com/opsforge/analytics-engine/internal/utils"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Watch the spool directory and process incident bundles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService()
		},
	}
}

func runService() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting analytics engine",
		slog.String("spool", cfg.Spool.Dir),
		slog.Int("workers", cfg.Spool.Workers),
		slog.String("store", cfg.Store.Backend))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	pipeline, history, err := buildComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer history.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	watcher := spool.NewWatcher(cfg.Spool.Dir, cfg.Spool.Workers, pipeline, logger)
	watchDone := make(chan error, 1)
	go func() {
		err := watcher.Run(ctx)
		if err != nil {
			logger.Error("spool watcher exited", slog.Any("error", err))
		}
		watchDone <- err
		stop()
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	var exitErr error
	select {
	case exitErr = <-watchDone:
	case <-time.After(cfg.Server.GracefulTimeout):
		logger.Warn("spool watcher did not stop within graceful timeout")
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("analytics engine stopped")
	return exitErr
}
