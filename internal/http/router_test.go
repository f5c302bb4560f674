package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abdullah0408/server/internal/domain/courses"
	httpH "github.com/abdullah0408/server/internal/http/handlers"
	"github.com/abdullah0408/server/internal/jobs"
	"github.com/abdullah0408/server/internal/jobs/scheduler"
	"github.com/abdullah0408/server/internal/observability"
	"github.com/abdullah0408/server/internal/platform/apierr"
	"github.com/abdullah0408/server/internal/platform/logger"
	"github.com/abdullah0408/server/internal/services"
)

type fakePipelines struct {
	inFlight map[string]bool
}

func (f *fakePipelines) Snapshots() []scheduler.Snapshot {
	return []scheduler.Snapshot{{Name: "course_layout", Interval: "1m0s"}}
}

func (f *fakePipelines) Trigger(ctx context.Context, name string) (bool, error) {
	if name != "course_layout" {
		return false, fmt.Errorf("%s: %w", name, jobs.ErrUnknownPipeline)
	}
	return !f.inFlight[name], nil
}

type fakeJobs struct {
	services.JobService
	course *courses.Course
}

func (f *fakeJobs) GetCourse(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*courses.Course, error) {
	if f.course == nil || f.course.ID != id {
		return nil, fmt.Errorf("course %s: %w", id, apierr.ErrNotFound)
	}
	return f.course, nil
}

func (f *fakeJobs) ListChapters(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*courses.Chapter, error) {
	return []*courses.Chapter{{ID: uuid.New(), CourseID: courseID, ChapterNumber: 1, Status: courses.ChapterStatusPending}}, nil
}

func (f *fakeJobs) ResetCourse(ctx context.Context, tx *gorm.DB, id uuid.UUID, to string) (*courses.Course, error) {
	if f.course == nil || f.course.ID != id {
		return nil, fmt.Errorf("course %s: %w", id, apierr.ErrNotFound)
	}
	if f.course.Status != courses.StatusProcessing && !courses.IsTerminalFailure(f.course.Status) {
		return nil, fmt.Errorf("course is %s: %w", f.course.Status, apierr.ErrStatusConflict)
	}
	if to == "" {
		to = courses.StatusPending
	}
	f.course.Status = to
	return f.course, nil
}

func (f *fakeJobs) Stats(ctx context.Context, tx *gorm.DB) (*services.JobStats, error) {
	return &services.JobStats{}, nil
}

func newTestRouter(t *testing.T, pipelines *fakePipelines, js *fakeJobs) *gin.Engine {
	t.Helper()
	return newTestRouterWithPing(t, pipelines, js, nil)
}

func newTestRouterWithPing(t *testing.T, pipelines *fakePipelines, js *fakeJobs, ping httpH.Pinger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewRouter(RouterConfig{
		Log:             log,
		Metrics:         observability.NewMetrics(),
		HealthHandler:   httpH.NewHealthHandler(ping),
		PipelineHandler: httpH.NewPipelineHandler(log, pipelines),
		CourseHandler:   httpH.NewCourseHandler(log, js),
		JobHandler:      httpH.NewJobHandler(log, js),
	})
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealthcheck(t *testing.T) {
	r := newTestRouter(t, &fakePipelines{}, &fakeJobs{})
	rec := do(r, http.MethodGet, "/healthcheck", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: got=%d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing X-Request-Id header")
	}
}

func TestReadyz(t *testing.T) {
	var storeErr error
	r := newTestRouterWithPing(t, &fakePipelines{}, &fakeJobs{}, func(ctx context.Context) error { return storeErr })

	if rec := do(r, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Fatalf("readyz: want=%d got=%d", http.StatusOK, rec.Code)
	}
	storeErr = errors.New("dial tcp: connection refused")
	rec := do(r, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "store_unreachable") {
		t.Fatalf("readyz down: want=%d got=%d body=%s", http.StatusServiceUnavailable, rec.Code, rec.Body.String())
	}
}

func TestErrorEnvelopeCarriesRequestID(t *testing.T) {
	r := newTestRouter(t, &fakePipelines{}, &fakeJobs{})
	req := httptest.NewRequest(http.MethodGet, "/api/courses/not-a-uuid", nil)
	req.Header.Set("X-Request-Id", "op-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var body struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.RequestID != "op-42" || body.Error.Code != "invalid_course_id" {
		t.Fatalf("error: got=%+v", body.Error)
	}
	if got := rec.Header().Get("X-Request-Id"); got != "op-42" {
		t.Fatalf("X-Request-Id: want=op-42 got=%q", got)
	}
}

func TestInboundRequestIDIsSanitized(t *testing.T) {
	r := newTestRouter(t, &fakePipelines{}, &fakeJobs{})
	for _, bad := range []string{"has space", "semi;colon", strings.Repeat("a", 200)} {
		req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
		req.Header.Set("X-Request-Id", bad)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		got := rec.Header().Get("X-Request-Id")
		if got == bad {
			t.Fatalf("X-Request-Id: %q was kept", bad)
		}
		if _, err := uuid.Parse(got); err != nil {
			t.Fatalf("X-Request-Id: want a fresh uuid got=%q", got)
		}
	}
}

func TestRunPipeline(t *testing.T) {
	pipelines := &fakePipelines{inFlight: map[string]bool{}}
	r := newTestRouter(t, pipelines, &fakeJobs{})

	if rec := do(r, http.MethodPost, "/api/pipelines/course_layout/run", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("run: want=%d got=%d", http.StatusAccepted, rec.Code)
	}
	pipelines.inFlight["course_layout"] = true
	if rec := do(r, http.MethodPost, "/api/pipelines/course_layout/run", ""); rec.Code != http.StatusConflict {
		t.Fatalf("run in flight: want=%d got=%d", http.StatusConflict, rec.Code)
	}
	if rec := do(r, http.MethodPost, "/api/pipelines/nope/run", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown: want=%d got=%d", http.StatusNotFound, rec.Code)
	}
}

func TestListPipelines(t *testing.T) {
	r := newTestRouter(t, &fakePipelines{}, &fakeJobs{})
	rec := do(r, http.MethodGet, "/api/pipelines", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: want=%d got=%d", http.StatusOK, rec.Code)
	}
	var body struct {
		Pipelines []scheduler.Snapshot `json:"pipelines"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Pipelines) != 1 || body.Pipelines[0].Name != "course_layout" {
		t.Fatalf("pipelines: got=%+v", body.Pipelines)
	}
}

func TestGetCourse(t *testing.T) {
	course := &courses.Course{ID: uuid.New(), Title: "Go", Status: courses.StatusApprovedLayout}
	r := newTestRouter(t, &fakePipelines{}, &fakeJobs{course: course})

	rec := do(r, http.MethodGet, "/api/courses/"+course.ID.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), courses.StatusApprovedLayout) {
		t.Fatalf("body missing status: %s", rec.Body.String())
	}

	if rec := do(r, http.MethodGet, "/api/courses/not-a-uuid", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: want=%d got=%d", http.StatusBadRequest, rec.Code)
	}
	if rec := do(r, http.MethodGet, "/api/courses/"+uuid.NewString(), ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing: want=%d got=%d", http.StatusNotFound, rec.Code)
	}
}

func TestResetCourse(t *testing.T) {
	course := &courses.Course{ID: uuid.New(), Title: "Go", Status: courses.StatusProcessing}
	js := &fakeJobs{course: course}
	r := newTestRouter(t, &fakePipelines{}, js)

	rec := do(r, http.MethodPost, "/api/courses/"+course.ID.String()+"/reset", `{"to":"PENDING"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if course.Status != courses.StatusPending {
		t.Fatalf("status: want=%s got=%s", courses.StatusPending, course.Status)
	}

	rec = do(r, http.MethodPost, "/api/courses/"+course.ID.String()+"/reset", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("reset pending: want=%d got=%d", http.StatusConflict, rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t, &fakePipelines{}, &fakeJobs{})
	do(r, http.MethodGet, "/api/jobs/stats", "")

	rec := do(r, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: want=%d got=%d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "coursegen_api_requests_total") {
		t.Fatalf("metrics body missing api counter:\n%s", rec.Body.String())
	}
	do(r, http.MethodGet, "/healthcheck", "")
	rec = do(r, http.MethodGet, "/metrics", "")
	if strings.Contains(rec.Body.String(), "/healthcheck") || strings.Contains(rec.Body.String(), `"/metrics"`) {
		t.Fatalf("health and scrape routes counted:\n%s", rec.Body.String())
	}
}
