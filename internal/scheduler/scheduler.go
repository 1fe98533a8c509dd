package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hristiyandudev55/nurblifebg/internal/logger"
	"github.com/hristiyandudev55/nurblifebg/internal/metrics"
)

// Task is a named unit of periodic work.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs each task on its own ticker. Runs of the same task never overlap;
// a failing run is logged and the task is tried again on the next tick.
type Scheduler struct {
	log   *logger.Logger
	tasks []Task

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(log *logger.Logger, tasks ...Task) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{log: log, tasks: tasks}
}

// Start launches every task and returns immediately. Each task runs once right away.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.New("scheduler already started")
	}
	for _, t := range s.tasks {
		if t.Interval <= 0 || t.Run == nil {
			return errors.New("scheduler: task " + t.Name + " needs an interval and a run func")
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for _, t := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
	s.log.Info("scheduler started", "tasks", len(s.tasks))
	return nil
}

// Stop cancels all tasks and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, t Task) {
	defer s.wg.Done()
	tick := time.NewTicker(t.Interval)
	defer tick.Stop()

	// kick immediately
	s.run(ctx, t)

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			s.run(ctx, t)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, t Task) {
	start := time.Now()
	err := t.Run(ctx)
	switch {
	case err == nil:
		metrics.SweepRuns.WithLabelValues(t.Name, "ok").Inc()
	case ctx.Err() != nil:
		// shutting down
	default:
		metrics.SweepRuns.WithLabelValues(t.Name, "error").Inc()
		s.log.Error("scheduled task failed", "task", t.Name, "error", err, "took", time.Since(start))
	}
}
