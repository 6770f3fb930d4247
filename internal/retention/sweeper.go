// Package retention prunes notification records past their retention
// window. Notifications are a rolling operational feed, not an archive:
// realtime and push delivery happen within seconds of creation and the
// history endpoint only serves recent activity, so old rows are hard
// deleted on a fixed schedule.
package retention

import (
	"context"
	"time"

	"freightline/internal/types"
)

// Store is the persistence surface the sweeper needs.
type Store interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper periodically deletes notification records older than MaxAge.
type Sweeper struct {
	store    Store
	maxAge   time.Duration
	interval time.Duration
	clock    types.Clock
	logger   types.Logger
}

// NewSweeper creates a Sweeper. maxAge is the retention window; interval
// is how often the sweep runs.
func NewSweeper(store Store, maxAge, interval time.Duration, clock types.Clock, logger types.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		maxAge:   maxAge,
		interval: interval,
		clock:    clock,
		logger:   logger,
	}
}

// Run sweeps once immediately, then on every interval tick until ctx is
// cancelled. Sweep failures are logged and retried on the next tick; only
// cancellation stops the loop.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("retention sweeper started",
		"max_age", s.maxAge.String(),
		"interval", s.interval.String(),
	)

	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention sweeper stopping")
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep deletes everything older than the retention cutoff. Exported so
// operational tooling can trigger an out-of-schedule sweep.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := s.clock.Now().Add(-s.maxAge)

	deleted, err := s.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("retention sweep failed",
			"cutoff", cutoff.Format(time.RFC3339),
			"error", err.Error(),
		)
		return
	}
	if deleted > 0 {
		s.logger.Info("retention sweep completed",
			"cutoff", cutoff.Format(time.RFC3339),
			"deleted", deleted,
		)
	}
}
