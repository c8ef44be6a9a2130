package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/Hamza-cpp/research-assistant/internal/ports"
)

// Scheduler wires the cron driver with the watch use case.
type Scheduler struct {
	driver ports.Scheduler
	watch  *Watch
	logger *slog.Logger
}

// NewScheduler returns a helper to start and stop the recurring watch.
func NewScheduler(driver ports.Scheduler, watch *Watch, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, watch: watch, logger: logger}
}

// Start registers the watch with the driver. Each trigger processes the
// previous calendar day, since listings for the current day are incomplete.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.watch == nil {
		return nil
	}

	job := func(trigger time.Time) {
		day := trigger.AddDate(0, 0, -1)
		report, err := s.watch.ProcessDay(ctx, day)
		if err != nil {
			s.logger.Error("scheduled watch failed", "day", day.Format(time.DateOnly), "error", err)
			return
		}
		s.logger.Info("scheduled watch done", "day", day.Format(time.DateOnly), "summarized", len(report.Summarized), "delivered", report.Delivered)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
