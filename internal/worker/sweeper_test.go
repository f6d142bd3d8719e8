package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakePruner struct {
	calls atomic.Int64
}

func (f *fakePruner) PruneExpiredTokens(context.Context) (int64, error) {
	f.calls.Add(1)
	return 1, nil
}

func TestSweeper_RunsOnEachTick(t *testing.T) {
	t.Parallel()

	pruner := &fakePruner{}
	ticks := make(chan time.Time)
	s := &Sweeper{
		Pruner: pruner,
		Log:    slog.Default(),
		Ticks:  ticks,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		ticks <- time.Now()
	}
	cancel()
	<-done

	assert.EqualValues(t, 3, pruner.calls.Load())
}

func TestSweeper_StopsOnCancel(t *testing.T) {
	t.Parallel()

	s := &Sweeper{
		Pruner:   &fakePruner{},
		Interval: time.Hour,
		Log:      slog.Default(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}
