package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hristiyandudev55/nurblifebg/internal/logger"
)

func TestSchedulerRunsImmediatelyAndRepeats(t *testing.T) {
	var runs atomic.Int32
	s := New(logger.Nop(), Task{
		Name:     "count",
		Interval: 10 * time.Millisecond,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop")
}

func TestSchedulerFirstRunIsImmediate(t *testing.T) {
	ran := make(chan struct{}, 1)
	s := New(nil, Task{
		Name:     "hourly",
		Interval: time.Hour,
		Run: func(context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		},
	})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("task did not run on start")
	}
}

func TestSchedulerKeepsGoingAfterFailure(t *testing.T) {
	var runs atomic.Int32
	s := New(logger.Nop(), Task{
		Name:     "flaky",
		Interval: 5 * time.Millisecond,
		Run: func(context.Context) error {
			runs.Add(1)
			return errors.New("db unavailable")
		},
	})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestSchedulerRunsDoNotOverlap(t *testing.T) {
	var active, maxActive atomic.Int32
	s := New(logger.Nop(), Task{
		Name:     "slow",
		Interval: time.Millisecond,
		Run: func(context.Context) error {
			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
			return nil
		},
	})
	require.NoError(t, s.Start(context.Background()))
	time.Sleep(40 * time.Millisecond)
	s.Stop()
	assert.Equal(t, int32(1), maxActive.Load())
}

func TestSchedulerStartValidation(t *testing.T) {
	s := New(logger.Nop(), Task{Name: "broken"})
	assert.Error(t, s.Start(context.Background()))

	ok := New(logger.Nop(), Task{Name: "ok", Interval: time.Hour, Run: func(context.Context) error { return nil }})
	require.NoError(t, ok.Start(context.Background()))
	defer ok.Stop()
	assert.Error(t, ok.Start(context.Background()), "double start")
}

func TestStopWithoutStart(t *testing.T) {
	New(logger.Nop()).Stop()
}
