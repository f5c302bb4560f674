package observability

import (
	"context"
	"io"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/abdullah0408/server/internal/platform/logger"
	"github.com/abdullah0408/server/internal/repos"
)

// Metrics collects job runtime counters. All methods are safe on a nil receiver
// so components can run without metrics wired.
type Metrics struct {
	runs         *CounterVec
	attempts     *CounterVec
	transitions  *CounterVec
	skippedTicks *CounterVec
	runDuration  *HistogramVec
	inflight     *GaugeVec
	queueDepth   *GaugeVec

	apiRequests *CounterVec
	apiDuration *HistogramVec
	apiInflight *GaugeVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		runs: NewCounterVec("coursegen_pipeline_runs_total",
			"Pipeline runs by result.", []string{"pipeline", "result"}),
		attempts: NewCounterVec("coursegen_stage_attempts_total",
			"Stage worker calls by outcome class.", []string{"pipeline", "class"}),
		transitions: NewCounterVec("coursegen_status_transitions_total",
			"Applied status transitions.", []string{"pipeline", "from", "to"}),
		skippedTicks: NewCounterVec("coursegen_scheduler_skipped_ticks_total",
			"Ticks skipped because the previous run was still in flight.", []string{"pipeline"}),
		runDuration: NewHistogramVec("coursegen_pipeline_run_seconds",
			"Wall time of a pipeline run.", []string{"pipeline"}, nil),
		inflight: NewGaugeVec("coursegen_pipeline_inflight",
			"1 while a pipeline run is in flight.", []string{"pipeline"}),
		queueDepth: NewGaugeVec("coursegen_jobs",
			"Rows per entity and status.", []string{"entity", "status"}),
		apiRequests: NewCounterVec("coursegen_api_requests_total",
			"Operator API requests.", []string{"method", "route", "status"}),
		apiDuration: NewHistogramVec("coursegen_api_request_seconds",
			"Operator API latency.", []string{"route"}, nil),
		apiInflight: NewGaugeVec("coursegen_api_inflight", "Operator API requests in flight.", nil),
	}
}

func (m *Metrics) ObserveRun(pipeline, result string, dur time.Duration) {
	if m == nil {
		return
	}
	m.runs.Inc(pipeline, result)
	m.runDuration.Observe(dur.Seconds(), pipeline)
}

func (m *Metrics) IncAttempt(pipeline, class string) {
	if m == nil {
		return
	}
	m.attempts.Inc(pipeline, class)
}

func (m *Metrics) IncTransition(pipeline, from, to string) {
	if m == nil {
		return
	}
	m.transitions.Inc(pipeline, from, to)
}

func (m *Metrics) IncSkippedTick(pipeline string) {
	if m == nil {
		return
	}
	m.skippedTicks.Inc(pipeline)
}

func (m *Metrics) SetInflight(pipeline string, on bool) {
	if m == nil {
		return
	}
	v := 0.0
	if on {
		v = 1
	}
	m.inflight.Set(v, pipeline)
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.Inc(method, route, status)
	m.apiDuration.Observe(dur.Seconds(), route)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

func (m *Metrics) RunCount(pipeline, result string) float64 {
	if m == nil {
		return 0
	}
	return m.runs.Value(pipeline, result)
}

func (m *Metrics) AttemptCount(pipeline, class string) float64 {
	if m == nil {
		return 0
	}
	return m.attempts.Value(pipeline, class)
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, wr := range []interface{ WritePrometheus(io.Writer) error }{
		m.runs, m.attempts, m.transitions, m.skippedTicks, m.runDuration, m.inflight, m.queueDepth,
		m.apiRequests, m.apiDuration, m.apiInflight,
	} {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

// StatusCounter is satisfied by the course and chapter repos.
type StatusCounter interface {
	CountByStatus(ctx context.Context, tx *gorm.DB) ([]repos.StatusCount, error)
}

// StartQueueCollector refreshes the per-status row gauges every interval until
// ctx is done.
func (m *Metrics) StartQueueCollector(ctx context.Context, log *logger.Logger, interval time.Duration, tables map[string]StatusCounter) {
	if m == nil || len(tables) == 0 {
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			m.collectQueueDepth(ctx, log, tables)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (m *Metrics) collectQueueDepth(ctx context.Context, log *logger.Logger, tables map[string]StatusCounter) {
	for entity, counter := range tables {
		rows, err := counter.CountByStatus(ctx, nil)
		if err != nil {
			if log != nil {
				log.Warn("metrics: status count query failed", "entity", entity, "error", err)
			}
			continue
		}
		for _, row := range rows {
			m.queueDepth.Set(float64(row.Count), entity, row.Status)
		}
	}
}
