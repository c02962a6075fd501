package reminders

import (
	"context"
	"log/slog"
	"time"
)

// Worker runs Process on a fixed interval until its context ends.
type Worker struct {
	svc      *Service
	logger   *slog.Logger
	interval time.Duration
}

func NewWorker(svc *Service, logger *slog.Logger, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Worker{svc: svc, logger: logger, interval: interval}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.svc.Process(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("reminder batch failed", "err", err)
			}
		}
	}
}
