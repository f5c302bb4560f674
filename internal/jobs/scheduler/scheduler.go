package scheduler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/abdullah0408/server/internal/observability"
	"github.com/abdullah0408/server/internal/platform/logger"
)

// Task is one run of a pipeline. It must return once its work is resolved.
type Task func(ctx context.Context)

// Snapshot is the operator view of a scheduler.
type Snapshot struct {
	Name           string     `json:"name"`
	Interval       string     `json:"interval"`
	Running        bool       `json:"running"`
	InFlight       bool       `json:"in_flight"`
	Runs           int64      `json:"runs"`
	SkippedTicks   int64      `json:"skipped_ticks"`
	LastStartedAt  *time.Time `json:"last_started_at,omitempty"`
	LastFinishedAt *time.Time `json:"last_finished_at,omitempty"`
}

// Scheduler fires a Task on a fixed interval and never lets two runs of the
// same Task overlap inside this process.
type Scheduler struct {
	name     string
	interval time.Duration
	task     Task
	log      *logger.Logger
	metrics  *observability.Metrics
	runFirst bool

	guard *semaphore.Weighted
	wg    sync.WaitGroup
	stop  chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
	snap    Snapshot
}

type Option func(*Scheduler)

func WithMetrics(m *observability.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithImmediateRun fires the first run at Start instead of one interval later.
func WithImmediateRun() Option {
	return func(s *Scheduler) { s.runFirst = true }
}

func New(name string, interval time.Duration, task Task, baseLog *logger.Logger, opts ...Option) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	s := &Scheduler{
		name:     name,
		interval: interval,
		task:     task,
		log:      baseLog.With("component", "Scheduler", "pipeline", name),
		guard:    semaphore.NewWeighted(1),
		stop:     make(chan struct{}),
		snap:     Snapshot{Name: name, Interval: interval.String()},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Name() string { return s.name }

// Start launches the tick loop. It returns immediately; the loop ends when ctx
// is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.snap.Running = true
	s.wg.Add(1)
	s.mu.Unlock()

	s.log.Info("Scheduler started", "interval", s.interval.String())
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.snap.Running = false
		s.mu.Unlock()
	}()
	if s.runFirst {
		s.TryRun(ctx)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.TryRun(ctx)
		}
	}
}

// TryRun starts the Task in the background unless a run is already in flight
// or the scheduler is stopped. The Task gets a context that keeps ctx's values
// but not its cancellation, so a claimed job is always resolved.
func (s *Scheduler) TryRun(ctx context.Context) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	if !s.guard.TryAcquire(1) {
		s.snap.SkippedTicks++
		s.mu.Unlock()
		s.metrics.IncSkippedTick(s.name)
		s.log.Info("Previous run still in flight; skipping tick")
		return false
	}
	now := time.Now().UTC()
	s.snap.InFlight = true
	s.snap.LastStartedAt = &now
	s.wg.Add(1)
	s.mu.Unlock()

	s.metrics.SetInflight(s.name, true)
	go s.run(context.WithoutCancel(ctx))
	return true
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	defer s.guard.Release(1)
	defer func() {
		if p := recover(); p != nil {
			s.log.Error("Scheduled task panicked", "panic", p)
		}
		finished := time.Now().UTC()
		s.mu.Lock()
		s.snap.InFlight = false
		s.snap.Runs++
		s.snap.LastFinishedAt = &finished
		s.mu.Unlock()
		s.metrics.SetInflight(s.name, false)
	}()
	s.task(ctx)
}

// Stop ends the tick loop and waits for an in-flight run to finish. ctx bounds
// the wait only; the run itself is not cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stop)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn("Scheduler stop timed out with a run in flight", "error", ctx.Err())
		return ctx.Err()
	}
}

func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snap
	if out.LastStartedAt != nil {
		t := *out.LastStartedAt
		out.LastStartedAt = &t
	}
	if out.LastFinishedAt != nil {
		t := *out.LastFinishedAt
		out.LastFinishedAt = &t
	}
	return out
}
