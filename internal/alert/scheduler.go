package alert

import (
	"context"
	"log/slog"
	"time"
)

type passRunner interface {
	RunPass(ctx context.Context) PassResult
}

// Scheduler runs a pass immediately and then once per interval.
type Scheduler struct {
	engine   passRunner
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(engine passRunner, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{engine: engine, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("alert scheduler started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.engine.RunPass(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("alert scheduler stopped")
			return
		case <-ticker.C:
			s.engine.RunPass(ctx)
		}
	}
}
