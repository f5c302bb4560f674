package pipeline

import (
	"context"
	"fmt"

	"github.com/abdullah0408/server/internal/domain/jobs"
	"github.com/abdullah0408/server/internal/platform/events"
	"github.com/abdullah0408/server/internal/platform/logger"
)

const (
	reasonSucceeded           = "stage_succeeded"
	reasonUnreachable         = "worker_unreachable"
	reasonPrerequisiteMissing = "prerequisite_missing"
	reasonExhausted           = "attempts_exhausted"
	reasonRetryInterrupted    = "retry_interrupted"
	reasonUnexpected          = "unexpected_error"
)

func (r *Runner) target(job *jobs.Job, res invokeResult) (string, string) {
	switch res.outcome {
	case OutcomeAdvance:
		return r.def.SuccessStatus, reasonSucceeded
	case OutcomeRevert:
		reason := reasonUnreachable
		if res.interrupted {
			reason = reasonRetryInterrupted
		}
		if job.ClaimedFrom != "" {
			return job.ClaimedFrom, reason
		}
		return r.def.EntryStatus, reason
	case OutcomeRevertPrior:
		return r.def.PriorEntryStatus, reasonPrerequisiteMissing
	default:
		return r.def.FailureStatus, reasonExhausted
	}
}

// record writes the outcome as a transition out of the working status, held by
// this run's claim. When the row already left the working status (the stage
// worker advances it on success) or was claimed again by another run, nothing
// is written and the returned status is empty.
func (r *Runner) record(ctx context.Context, log *logger.Logger, job *jobs.Job, res invokeResult) (string, error) {
	to, reason := r.target(job, res)
	if to == "" {
		return "", fmt.Errorf("no target status for outcome %s", res.outcome)
	}
	ok, err := r.store.ResolveClaim(ctx, nil, job.ID, job.ClaimID, r.def.WorkingStatus, to)
	if err != nil {
		return "", fmt.Errorf("transition %s -> %s: %w", r.def.WorkingStatus, to, err)
	}
	if !ok {
		if res.outcome == OutcomeAdvance {
			log.Info("Status already moved by stage worker or claimed again", "to", to)
		} else {
			log.Warn("Job left working status during run; outcome not written", "outcome", res.outcome, "to", to)
		}
		return "", nil
	}
	log.Info("Job resolved", "outcome", res.outcome, "to", to, "attempts", res.attempts)
	r.publish(ctx, log, job, r.def.WorkingStatus, to, reason, res.attempts)
	return to, nil
}

func (r *Runner) publish(ctx context.Context, log *logger.Logger, job *jobs.Job, from, to, reason string, attempts int) {
	r.metrics.IncTransition(r.def.Name, from, to)
	if r.bus == nil {
		return
	}
	ev := events.StatusEvent{
		Pipeline: r.def.Name,
		Entity:   string(job.Entity),
		JobID:    job.ID,
		From:     from,
		To:       to,
		Reason:   reason,
		Attempts: attempts,
		At:       r.now().UTC(),
	}
	if err := r.bus.Publish(ctx, ev); err != nil {
		log.Warn("Status event publish failed", "to", to, "error", err)
	}
}
