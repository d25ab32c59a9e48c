package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/region23/hotelbot/pkg/logger"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep(context.Context) (int, error) {
	s.calls.Add(1)
	return 0, nil
}

func TestScheduler_RunsJobsPeriodically(t *testing.T) {
	s, err := New(time.Second, logger.Nop())
	require.NoError(t, err)

	sweeper := &countingSweeper{}
	var failing atomic.Int32
	require.NoError(t, s.Every("relay-sweep", 20*time.Millisecond, SweepJob(sweeper)))
	require.NoError(t, s.Every("broken", 20*time.Millisecond, func(context.Context) error {
		failing.Add(1)
		return errors.New("boom")
	}))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 2 && failing.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond, "a failing job does not stop the others")
}

func TestScheduler_StopCancelsJobContext(t *testing.T) {
	s, err := New(time.Minute, logger.Nop())
	require.NoError(t, err)

	started := make(chan struct{}, 1)
	canceled := make(chan struct{}, 1)
	require.NoError(t, s.Every("long", 10*time.Millisecond, func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		select {
		case canceled <- struct{}{}:
		default:
		}
		return ctx.Err()
	}))
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not start")
	}

	require.NoError(t, s.Stop())
	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("job context was not canceled on stop")
	}

	assert.NoError(t, s.Stop(), "second stop is a no-op")
}

func TestScheduler_RejectsBadInterval(t *testing.T) {
	s, err := New(0, logger.Nop())
	require.NoError(t, err)
	assert.Error(t, s.Every("zero", 0, func(context.Context) error { return nil }))
}

func TestScheduler_JobContextFollowsStartContext(t *testing.T) {
	s, err := New(time.Minute, logger.Nop())
	require.NoError(t, err)
	defer s.Stop()

	canceled := make(chan struct{}, 1)
	require.NoError(t, s.Every("long", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		select {
		case canceled <- struct{}{}:
		default:
		}
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	assert.Error(t, s.Start(ctx), "second start is rejected")

	cancel()
	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("job context was not canceled with the start context")
	}
}
