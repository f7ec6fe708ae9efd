package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/solar-panel-monitor/internal/bootstrap"
	"github.com/kirillkom/solar-panel-monitor/internal/config"
	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
	"github.com/kirillkom/solar-panel-monitor/internal/observability/logging"
	"github.com/kirillkom/solar-panel-monitor/internal/observability/metrics"
)

const service = "solarmon-worker"

func main() {
	cfg := config.Load()
	logger := logging.Setup(service, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(service)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsMux(workerMetrics),
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSReadingsSubj)
	err = app.Queue.SubscribeReadings(ctx, func(handlerCtx context.Context, reading domain.PanelReading) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()

		start := time.Now()
		workerMetrics.ObserveReadingLag(service, time.Since(reading.RecordedAt))

		processErr := app.Processor.ProcessReading(processCtx, reading)
		workerMetrics.FinishReading(service, time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

func metricsMux(workerMetrics *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMetrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}
