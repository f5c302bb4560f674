package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/abdullah0408/server/internal/clients/stageworker"
	"github.com/abdullah0408/server/internal/domain/jobs"
	"github.com/abdullah0408/server/internal/observability"
	"github.com/abdullah0408/server/internal/platform/ctxutil"
	"github.com/abdullah0408/server/internal/platform/events"
	"github.com/abdullah0408/server/internal/platform/logger"
)

// Store is the status table a pipeline polls. repos.CourseRepo and
// repos.ChapterRepo both satisfy it.
type Store interface {
	ClaimOldest(ctx context.Context, tx *gorm.DB, from, to string) (*jobs.Job, error)
	ResolveClaim(ctx context.Context, tx *gorm.DB, id, claimID uuid.UUID, from, to string) (bool, error)
}

type Result string

const (
	ResultIdle          Result = "idle"
	ResultClaimError    Result = "claim_error"
	ResultAdvanced      Result = "advanced"
	ResultReverted      Result = "reverted"
	ResultRevertedPrior Result = "reverted_prior"
	ResultExhausted     Result = "exhausted"
	ResultUnexpected    Result = "unexpected"
)

// Report describes what a single run did. FinalStatus is empty when the run
// did not write the final status itself.
type Report struct {
	Pipeline    string
	RunID       string
	Result      Result
	JobID       uuid.UUID
	Attempts    int
	FinalStatus string
	Err         error
}

type Runner struct {
	def     Definition
	store   Store
	worker  stageworker.Client
	log     *logger.Logger
	policy  RetryPolicy
	sleep   Sleeper
	bus     events.Bus
	metrics *observability.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

type Option func(*Runner)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(r *Runner) { r.policy = p }
}

func WithSleeper(s Sleeper) Option {
	return func(r *Runner) {
		if s != nil {
			r.sleep = s
		}
	}
}

func WithBus(b events.Bus) Option {
	return func(r *Runner) { r.bus = b }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

func NewRunner(def Definition, store Store, worker stageworker.Client, baseLog *logger.Logger, opts ...Option) *Runner {
	r := &Runner{
		def:    def,
		store:  store,
		worker: worker,
		log:    baseLog.With("component", "PipelineRunner", "pipeline", def.Name),
		policy: DefaultRetryPolicy(),
		sleep:  sleepCtx,
		tracer: observability.Tracer(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.policy = r.policy.normalized()
	return r
}

func (r *Runner) Name() string { return r.def.Name }

func (r *Runner) Definition() Definition { return r.def }

// Run claims at most one job and drives it to a resolved status. It never
// returns an error: every failure after the claim ends with the job moved out
// of the working status.
func (r *Runner) Run(ctx context.Context) (rep Report) {
	start := r.now()
	runID := uuid.NewString()
	ctx = ctxutil.WithTraceData(ctx, &ctxutil.TraceData{RunID: runID})
	ctx, span := r.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("pipeline", r.def.Name),
		attribute.String("run_id", runID),
	))
	log := r.log.With("run_id", runID)
	rep = Report{Pipeline: r.def.Name, RunID: runID}

	var job *jobs.Job
	defer func() {
		if p := recover(); p != nil {
			rep.Result = ResultUnexpected
			rep.Err = fmt.Errorf("panic: %v", p)
			log.Error("Pipeline run panicked", "job_id", rep.JobID, "panic", p)
			if job != nil {
				rep.FinalStatus = r.revertUnexpected(ctx, log, job, rep.Attempts)
			}
		}
		if rep.Err != nil {
			span.RecordError(rep.Err)
			span.SetStatus(codes.Error, rep.Err.Error())
		}
		span.SetAttributes(
			attribute.String("result", string(rep.Result)),
			attribute.Int("attempts", rep.Attempts),
		)
		span.End()
		r.metrics.ObserveRun(r.def.Name, string(rep.Result), r.now().Sub(start))
	}()

	var err error
	job, err = r.claim(ctx, log)
	if err != nil {
		rep.Result = ResultClaimError
		rep.Err = err
		return rep
	}
	if job == nil {
		rep.Result = ResultIdle
		return rep
	}
	rep.JobID = job.ID
	span.SetAttributes(attribute.String("job_id", job.ID.String()))
	log = log.With("job_id", job.ID)
	r.metrics.IncTransition(r.def.Name, job.ClaimedFrom, r.def.WorkingStatus)
	log.Info("Claimed job", "from", job.ClaimedFrom)

	res := r.invoke(ctx, log, job)
	rep.Attempts = res.attempts

	final, err := r.record(ctx, log, job, res)
	if err != nil {
		rep.Result = ResultUnexpected
		rep.Err = err
		log.Error("Recording outcome failed", "outcome", res.outcome, "error", err)
		rep.FinalStatus = r.revertUnexpected(ctx, log, job, res.attempts)
		return rep
	}
	rep.Result = res.outcome.result()
	rep.FinalStatus = final
	rep.Err = res.lastErr
	return rep
}

func (r *Runner) claim(ctx context.Context, log *logger.Logger) (*jobs.Job, error) {
	job, err := r.store.ClaimOldest(ctx, nil, r.def.EntryStatus, r.def.WorkingStatus)
	if err != nil {
		log.Error("Claim failed", "from", r.def.EntryStatus, "error", err)
		return nil, fmt.Errorf("claim %s: %w", r.def.EntryStatus, err)
	}
	if job == nil {
		log.Debug("No job to claim", "from", r.def.EntryStatus)
		return nil, nil
	}
	return job, nil
}

// revertUnexpected puts a job whose run broke down back to the status it was
// claimed from, so the next tick picks it up again.
func (r *Runner) revertUnexpected(ctx context.Context, log *logger.Logger, job *jobs.Job, attempts int) string {
	to := job.ClaimedFrom
	if to == "" {
		to = r.def.EntryStatus
	}
	ok, err := r.store.ResolveClaim(ctx, nil, job.ID, job.ClaimID, r.def.WorkingStatus, to)
	if err != nil {
		log.Error("Revert after unexpected error failed; job left in working status", "to", to, "error", err)
		return r.def.WorkingStatus
	}
	if !ok {
		log.Warn("Revert skipped; job no longer held by this run", "to", to)
		return ""
	}
	r.publish(ctx, log, job, r.def.WorkingStatus, to, reasonUnexpected, attempts)
	return to
}
