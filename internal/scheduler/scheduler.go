package scheduler

import (
	"context"
	"log/slog"
	"time"

	"grants_fetcher/internal/domain"
)

// Runner is the full-pipeline run the scheduler repeats.
type Runner interface {
	Run(ctx context.Context) ([]domain.SourceResult, error)
}

type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewScheduler(runner Runner, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

// Start runs immediately, then on every tick until the context is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	results, err := s.runner.Run(runCtx)
	if err != nil {
		s.logger.Error("run failed", "error", err)
		return
	}

	for _, r := range results {
		s.logger.Info("provider result",
			"source", r.Source,
			"total", r.Total,
			"loaded", r.Loaded,
			"updated", r.Updated,
			"errors", r.Errors,
			"failed", r.Failed,
			"duration", r.Duration,
		)
	}
}
