package ranking

import (
	"context"
	"time"

	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/logging"
)

// Recomputer triggers one scoring pass.  *Service implements it; the
// scheduler depends on the interface so tests can count passes with a stub.
type Recomputer interface {
	Recompute(ctx context.Context) (string, error)
}

// Scheduler coalesces bursts of graph updates into single recompute passes.
// Notify is non-blocking and may be called from any goroutine; after the
// first notification the scheduler waits one debounce window, absorbing
// everything that arrives meanwhile, then runs exactly one pass.  The window
// is not extended by late arrivals, so a continuous event feed still gets a
// fresh snapshot once per window instead of starving.
type Scheduler struct {
	rec      Recomputer
	debounce time.Duration
	logger   logging.Logger

	pending chan struct{}
}

// NewScheduler builds a scheduler around the given recomputer.  A debounce
// of zero or less fires immediately on every notification batch.
func NewScheduler(rec Recomputer, debounce time.Duration, logger logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Scheduler{
		rec:      rec,
		debounce: debounce,
		logger:   logger,
		pending:  make(chan struct{}, 1),
	}
}

// Notify marks the graph dirty.  Notifications arriving while one is already
// pending coalesce into it.
func (s *Scheduler) Notify() {
	select {
	case s.pending <- struct{}{}:
	default:
	}
}

// Run serves notifications until ctx is done, then returns nil.  Recompute
// failures are logged and do not stop the loop; updates that arrive while a
// pass is running are picked up by the next window.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.pending:
		}
		if err := s.absorb(ctx); err != nil {
			return nil
		}
		version, err := s.rec.Recompute(ctx)
		switch {
		case err == nil:
			s.logger.Debug("debounced recompute finished", logging.String("version", version))
		case ctx.Err() != nil:
			return nil
		default:
			s.logger.Warn("debounced recompute failed", logging.Err(err))
		}
	}
}

// absorb waits out one debounce window, swallowing further notifications.
func (s *Scheduler) absorb(ctx context.Context) error {
	if s.debounce <= 0 {
		return nil
	}
	t := time.NewTimer(s.debounce)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.pending:
		case <-t.C:
			return nil
		}
	}
}
