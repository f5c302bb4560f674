package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/abdullah0408/server/internal/jobs/scheduler"
	"github.com/abdullah0408/server/internal/platform/logger"
)

var ErrUnknownPipeline = errors.New("unknown pipeline")

// Supervisor owns the scheduler of every enabled pipeline.
type Supervisor struct {
	log        *logger.Logger
	mu         sync.RWMutex
	order      []string
	schedulers map[string]*scheduler.Scheduler
}

func NewSupervisor(baseLog *logger.Logger) *Supervisor {
	return &Supervisor{
		log:        baseLog.With("component", "JobSupervisor"),
		schedulers: make(map[string]*scheduler.Scheduler),
	}
}

func (s *Supervisor) Register(sch *scheduler.Scheduler) error {
	if sch == nil {
		return fmt.Errorf("nil scheduler")
	}
	name := sch.Name()
	if name == "" {
		return fmt.Errorf("scheduler Name() is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.schedulers[name]; exists {
		return fmt.Errorf("scheduler already registered for pipeline=%s", name)
	}
	s.schedulers[name] = sch
	s.order = append(s.order, name)
	return nil
}

func (s *Supervisor) Start(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, name := range s.order {
		s.schedulers[name].Start(ctx)
	}
	s.log.Info("Pipelines started", "pipelines", s.order)
}

// Stop stops every scheduler and waits for their in-flight runs.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.RLock()
	all := make([]*scheduler.Scheduler, 0, len(s.order))
	for _, name := range s.order {
		all = append(all, s.schedulers[name])
	}
	s.mu.RUnlock()

	var wg sync.WaitGroup
	errs := make([]error, len(all))
	for i, sch := range all {
		wg.Add(1)
		go func(i int, sch *scheduler.Scheduler) {
			defer wg.Done()
			if err := sch.Stop(ctx); err != nil {
				errs[i] = fmt.Errorf("%s: %w", sch.Name(), err)
			}
		}(i, sch)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (s *Supervisor) Snapshots() []scheduler.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]scheduler.Snapshot, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.schedulers[name].Snapshot())
	}
	return out
}

// Trigger starts one run of the named pipeline now. It reports false when a
// run is already in flight.
func (s *Supervisor) Trigger(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	sch, ok := s.schedulers[name]
	s.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("%s: %w", name, ErrUnknownPipeline)
	}
	return sch.TryRun(ctx), nil
}
