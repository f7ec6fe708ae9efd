package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	httpadapter "github.com/kirillkom/solar-panel-monitor/internal/adapters/http"
	"github.com/kirillkom/solar-panel-monitor/internal/bootstrap"
	"github.com/kirillkom/solar-panel-monitor/internal/config"
	"github.com/kirillkom/solar-panel-monitor/internal/observability/logging"
	"github.com/kirillkom/solar-panel-monitor/internal/observability/metrics"
)

const service = "solarmon-api"

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

	// First boot on an empty store pulls the knowledge base in. The api
	// still serves if ingestion fails; retrieval degrades per request.
	if err := app.IngestUC.EnsureIngested(ctx, cfg.KnowledgeDir); err != nil {
		logger.Warn("knowledge_ingest_failed", "dir", cfg.KnowledgeDir, "error", err)
	}

	serverMetrics := metrics.NewHTTPServerMetrics(service)
	router := httpadapter.NewRouter(
		service,
		app.AnalyzeUC,
		app.Retriever,
		app.Telemetry,
		app.ReportUC,
		app.Analyses,
		app.Camera,
		serverMetrics,
	)

	server := &http.Server{
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		logger.Error("listen_failed", "port", cfg.APIPort, "error", err)
		os.Exit(1)
	}
	listener = netutil.LimitListener(listener, cfg.MaxConcurrentConns)

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort, "max_conns", cfg.MaxConcurrentConns)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
