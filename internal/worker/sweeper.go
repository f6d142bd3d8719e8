package worker

import (
	"context"
	"log/slog"
	"time"
)

type Pruner interface {
	PruneExpiredTokens(ctx context.Context) (int64, error)
}

// Sweeper periodically deletes revoked and expired session rows. Ticks come
// from an injectable channel so tests drive iterations without wall-clock
// waits.
type Sweeper struct {
	Pruner   Pruner
	Interval time.Duration
	Log      *slog.Logger

	// Ticks overrides the interval ticker when set.
	Ticks <-chan time.Time
}

func (s *Sweeper) Run(ctx context.Context) {
	ticks := s.Ticks
	if ticks == nil {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	s.Log.Info("retention sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.Log.Info("retention sweeper stopping")
			return
		case <-ticks:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	n, err := s.Pruner.PruneExpiredTokens(runCtx)
	if err != nil {
		s.Log.Error("token prune failed", "error", err)
		return
	}
	if n > 0 {
		s.Log.Info("pruned session tokens", "count", n)
	}
}
