package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Hamza-cpp/research-assistant/internal/app"
	"github.com/Hamza-cpp/research-assistant/internal/config"
	"github.com/Hamza-cpp/research-assistant/internal/logging"
	"github.com/Hamza-cpp/research-assistant/internal/mcpserver"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	// stdout carries the protocol
	logger := logging.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close(context.Background())

	logger.Info("starting mcp server", "version", app.Version)
	srv := mcpserver.New(application.Articles(), app.Version, logging.Component(logger, "mcp"))
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Error("mcp server failed", "error", err)
	}
}
