package main

import (
	"context"
	"os"

	mcpadapter "github.com/kirillkom/solar-panel-monitor/internal/adapters/mcp"
	"github.com/kirillkom/solar-panel-monitor/internal/bootstrap"
	"github.com/kirillkom/solar-panel-monitor/internal/config"
	"github.com/kirillkom/solar-panel-monitor/internal/observability/logging"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	// Stdout carries the MCP protocol; logs must not pollute it.
	logger := logging.SetupStderr("solarmon-mcp", cfg.LogLevel)

	app, err := bootstrap.New(context.Background(), cfg)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server := mcpadapter.NewServer(version, app.Retriever)
	if err := server.ServeStdio(); err != nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
