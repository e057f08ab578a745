package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Refresher re-reads every collection from the store.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler asks for a full resync on a fixed interval, so missed
// notifications are recovered from without waiting for the next change.
type Scheduler struct {
	refresher Refresher
	interval  time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
}

func NewScheduler(refresher Refresher, interval time.Duration, clock clockwork.Clock, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		refresher: refresher,
		interval:  interval,
		clock:     clock,
		logger:    logger,
	}
}

// Start blocks until ctx is cancelled. The subscriber loads an initial
// snapshot itself, so the first resync happens one interval after start.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("scheduler disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	s.logger.Info("scheduler started", "interval", s.interval)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.Chan():
			s.runRefresh(ctx)
		}
	}
}

func (s *Scheduler) runRefresh(ctx context.Context) {
	refreshCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	if err := s.refresher.Refresh(refreshCtx); err != nil {
		s.logger.Error("resync failed", "error", err)
		return
	}
	s.logger.Debug("resync requested")
}
