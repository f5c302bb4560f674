package pipeline

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/abdullah0408/server/internal/domain/jobs"
	"github.com/abdullah0408/server/internal/platform/logger"
)

type Outcome int

const (
	OutcomeAdvance Outcome = iota
	OutcomeRevert
	OutcomeRevertPrior
	OutcomeExhausted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdvance:
		return "advance"
	case OutcomeRevert:
		return "revert"
	case OutcomeRevertPrior:
		return "revert_prior"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

func (o Outcome) result() Result {
	switch o {
	case OutcomeAdvance:
		return ResultAdvanced
	case OutcomeRevert:
		return ResultReverted
	case OutcomeRevertPrior:
		return ResultRevertedPrior
	case OutcomeExhausted:
		return ResultExhausted
	default:
		return ResultUnexpected
	}
}

type invokeResult struct {
	outcome     Outcome
	attempts    int
	lastErr     error
	// interrupted is set when a retry wait was cut short by ctx.
	interrupted bool
}

// invoke calls the stage worker until it succeeds, fails in a way retrying
// cannot fix, or the attempt budget runs out.
func (r *Runner) invoke(ctx context.Context, log *logger.Logger, job *jobs.Job) invokeResult {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		actx, span := r.tracer.Start(ctx, "pipeline.attempt")
		span.SetAttributes(
			attribute.String("pipeline", r.def.Name),
			attribute.String("operation", r.def.Operation.Name),
			attribute.Int("attempt", attempt),
		)
		err := r.worker.Perform(actx, r.def.Operation, job.ID)
		class := r.classify(err)
		span.SetAttributes(attribute.String("class", class.String()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		r.metrics.IncAttempt(r.def.Name, class.String())

		switch class {
		case ClassSuccess:
			log.Info("Stage worker succeeded", "attempt", attempt)
			return invokeResult{outcome: OutcomeAdvance, attempts: attempt}
		case ClassPermanentNetwork:
			log.Warn("Stage worker unreachable; reverting job", "attempt", attempt, "error", err)
			return invokeResult{outcome: OutcomeRevert, attempts: attempt, lastErr: err}
		case ClassPrerequisiteMissing:
			log.Warn("Upstream artifact missing; sending job back", "attempt", attempt, "to", r.def.PriorEntryStatus, "error", err)
			return invokeResult{outcome: OutcomeRevertPrior, attempts: attempt, lastErr: err}
		}

		lastErr = err
		log.Warn("Stage worker attempt failed", "attempt", attempt, "max_attempts", r.policy.MaxAttempts, "error", err)
		if attempt == r.policy.MaxAttempts {
			break
		}
		delay := r.policy.Delay(attempt)
		if sErr := r.sleep(ctx, delay); sErr != nil {
			log.Warn("Retry wait interrupted; reverting job", "attempt", attempt, "error", sErr)
			return invokeResult{outcome: OutcomeRevert, attempts: attempt, lastErr: err, interrupted: true}
		}
	}
	log.Error("Attempts exhausted", "attempts", r.policy.MaxAttempts, "error", lastErr)
	return invokeResult{outcome: OutcomeExhausted, attempts: r.policy.MaxAttempts, lastErr: lastErr}
}

func (r *Runner) classify(err error) Class {
	c := Classify(err)
	if c == ClassPrerequisiteMissing && r.def.PriorEntryStatus == "" {
		return ClassTransient
	}
	return c
}
