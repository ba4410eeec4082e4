package worker

import (
	"context"
	"log/slog"
	"time"
)

// Job is one periodic task. Run is called once at start and then on every
// tick until the context ends.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

func runLoop(ctx context.Context, logger *slog.Logger, job Job) error {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	logger.Info("worker started", "job", job.Name, "interval", job.Interval)
	for {
		if err := job.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("worker run failed", "job", job.Name, "error", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			logger.Info("worker stopped", "job", job.Name)
			return nil
		}
	}
}
