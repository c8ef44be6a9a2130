package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Hamza-cpp/research-assistant/internal/app"
	"github.com/Hamza-cpp/research-assistant/internal/config"
	"github.com/Hamza-cpp/research-assistant/internal/logging"
)

func main() {
	once := flag.Bool("once", false, "run the daily watch once and exit")
	day := flag.String("day", "", "day to process in -once mode (YYYY-MM-DD, default yesterday)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := application.Close(closeCtx); err != nil {
			logger.Error("close failed", "error", err)
		}
	}()

	if *once {
		target := time.Now().In(cfg.Scheduler.Location()).AddDate(0, 0, -1)
		if *day != "" {
			target, err = time.ParseInLocation(time.DateOnly, *day, cfg.Scheduler.Location())
			if err != nil {
				logger.Error("invalid -day", "value", *day, "error", err)
				return
			}
		}
		report, err := application.RunOnce(ctx, target)
		if err != nil {
			logger.Error("watch failed", "error", err)
			return
		}
		logger.Info("watch done",
			"day", target.Format(time.DateOnly),
			"fetched", report.Fetched,
			"skipped", report.Skipped,
			"failed", report.Failed,
			"summarized", len(report.Summarized),
			"delivered", report.Delivered,
		)
		return
	}

	if err := application.Serve(ctx); err != nil {
		logger.Error("application stopped", "error", err)
	}
}
