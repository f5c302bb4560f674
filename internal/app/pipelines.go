package app

import (
	"context"
	"fmt"

	"github.com/abdullah0408/server/internal/jobs"
	"github.com/abdullah0408/server/internal/jobs/pipeline"
	"github.com/abdullah0408/server/internal/jobs/scheduler"
	"github.com/abdullah0408/server/internal/observability"
	"github.com/abdullah0408/server/internal/platform/logger"
)

func wirePipelines(log *logger.Logger, cfg Config, reposet Repos, clients Clients, metrics *observability.Metrics) (*jobs.Supervisor, error) {
	log.Info("Wiring pipelines...")
	stores := map[string]pipeline.Store{
		pipeline.NameCourseLayout:   reposet.Course,
		pipeline.NameCreateChapters: reposet.Course,
		pipeline.NameChapterContent: reposet.Chapter,
	}
	sup := jobs.NewSupervisor(log)
	for _, def := range pipeline.Definitions() {
		pc := cfg.Pipelines[def.Name]
		if !pc.Enabled {
			log.Warn("Pipeline disabled", "pipeline", def.Name)
			continue
		}
		runner := pipeline.NewRunner(def, stores[def.Name], clients.StageWorker, log,
			pipeline.WithRetryPolicy(pipeline.RetryPolicy{MaxAttempts: pc.MaxAttempts, BaseDelay: pc.BaseDelay}),
			pipeline.WithBus(clients.Bus),
			pipeline.WithMetrics(metrics),
		)
		sch := scheduler.New(def.Name, pc.Interval, func(ctx context.Context) {
			runner.Run(ctx)
		}, log, scheduler.WithMetrics(metrics))
		if err := sup.Register(sch); err != nil {
			return nil, fmt.Errorf("register %s: %w", def.Name, err)
		}
	}
	return sup, nil
}
