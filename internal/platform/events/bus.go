package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/abdullah0408/server/internal/platform/logger"
)

// StatusEvent describes one status change applied by the job runtime or by an
// operator reset.
type StatusEvent struct {
	Pipeline string    `json:"pipeline,omitempty"`
	Entity   string    `json:"entity"`
	JobID    uuid.UUID `json:"job_id"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Reason   string    `json:"reason"`
	Attempts int       `json:"attempts,omitempty"`
	At       time.Time `json:"at"`
}

type Bus interface {
	Publish(ctx context.Context, ev StatusEvent) error
	Close() error
}

// Subscriber is implemented by buses that can stream events back, which is
// only the redis bus.
type Subscriber interface {
	Subscribe(ctx context.Context, onEvent func(StatusEvent)) error
}

type logBus struct {
	log *logger.Logger
}

// NewLogBus returns a Bus that only writes events to the log.
func NewLogBus(log *logger.Logger) Bus {
	return &logBus{log: log.With("service", "LogStatusBus")}
}

func (b *logBus) Publish(ctx context.Context, ev StatusEvent) error {
	b.log.Debug("Status event",
		"pipeline", ev.Pipeline,
		"entity", ev.Entity,
		"job_id", ev.JobID,
		"from", ev.From,
		"to", ev.To,
		"reason", ev.Reason,
	)
	return nil
}

func (b *logBus) Close() error { return nil }
