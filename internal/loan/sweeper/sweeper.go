// Package sweeper runs the periodic overdue sweep in the background.
package sweeper

import (
	"context"
	"log/slog"
	"time"
)

// Sweep is the batch operation the worker drives; the loan service
// satisfies it.
type Sweep interface {
	SweepOverdue(ctx context.Context) (int, error)
}

// Sweeper marks checked-out loans late on a fixed interval. Sweep failures
// are logged and retried on the next tick rather than stopping the worker;
// a flaky store must not permanently disable the sweep.
type Sweeper struct {
	sweep    Sweep
	interval time.Duration
	logger   *slog.Logger
}

func New(sweep Sweep, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{sweep: sweep, interval: interval, logger: logger}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	if _, err := s.sweep.SweepOverdue(ctx); err != nil {
		s.logger.ErrorContext(ctx, "overdue sweep failed", slog.String("error", err.Error()))
	}
}
