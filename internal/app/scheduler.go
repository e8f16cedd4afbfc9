package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler sweeps all users' mailboxes on a fixed interval.
type Scheduler struct {
	svc      *Service
	interval time.Duration
	clock    clockwork.Clock
}

func NewScheduler(svc *Service, interval time.Duration, clock clockwork.Clock) *Scheduler {
	return &Scheduler{svc: svc, interval: interval, clock: clock}
}

// Run blocks until ctx is canceled, syncing every user once per interval.
// Each sweep gets the interval as its deadline so a stuck sweep cannot pile
// up behind the next tick.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Sync scheduler started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sync scheduler stopped")
			return
		case <-ticker.Chan():
			runCtx, cancel := context.WithTimeout(ctx, s.interval)
			summary, err := s.svc.SyncAllUsers(runCtx)
			cancel()

			if err != nil {
				slog.ErrorContext(ctx, "Scheduled sync sweep failed", "error", err)
				continue
			}
			slog.InfoContext(ctx, "Scheduled sync sweep finished",
				"users", summary.Users,
				"succeeded", summary.Succeeded,
				"skipped", summary.Skipped,
				"failed", summary.Failed,
				"inserted", summary.Inserted,
				"status_updates", summary.StatusUpdates)
		}
	}
}
