package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"

	"github.com/abdullah0408/server/internal/db"
	"github.com/abdullah0408/server/internal/domain/courses"
	"github.com/abdullah0408/server/internal/platform/apierr"
	"github.com/abdullah0408/server/internal/platform/events"
	"github.com/abdullah0408/server/internal/platform/logger"
	"github.com/abdullah0408/server/internal/repos"
)

type captureBus struct {
	mu     sync.Mutex
	events []events.StatusEvent
}

func (b *captureBus) Publish(ctx context.Context, ev events.StatusEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *captureBus) Close() error { return nil }

func newTestService(t *testing.T) (JobService, repos.CourseRepo, *captureBus) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	svc, err := db.NewFromDialector(log, sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := svc.DB().DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := svc.AutoMigrateAll(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })

	courseRepo := repos.NewCourseRepo(svc.DB(), log)
	chapterRepo := repos.NewChapterRepo(svc.DB(), log)
	bus := &captureBus{}
	return NewJobService(log, courseRepo, chapterRepo, bus), courseRepo, bus
}

func TestEnqueueCourseStartsPending(t *testing.T) {
	js, _, _ := newTestService(t)
	c, err := js.EnqueueCourse(context.Background(), nil, "Intro to Go", "", "beginner")
	if err != nil {
		t.Fatalf("EnqueueCourse: %v", err)
	}
	if c.Status != courses.StatusPending || c.ID == uuid.Nil {
		t.Fatalf("course: got=%+v", c)
	}
	if _, err := js.EnqueueCourse(context.Background(), nil, "  ", "", ""); err == nil {
		t.Fatalf("EnqueueCourse blank title: want error")
	}
}

func TestEnqueueChapterNeedsCourse(t *testing.T) {
	js, _, _ := newTestService(t)
	_, err := js.EnqueueChapter(context.Background(), nil, uuid.New(), 1, "Basics")
	if !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("EnqueueChapter: want ErrNotFound got=%v", err)
	}
}

func TestResetCourseFromProcessing(t *testing.T) {
	js, courseRepo, bus := newTestService(t)
	ctx := context.Background()
	c, err := js.EnqueueCourse(ctx, nil, "Intro to Go", "", "")
	if err != nil {
		t.Fatalf("EnqueueCourse: %v", err)
	}
	if ok, err := courseRepo.TransitionStatus(ctx, nil, c.ID, courses.StatusPending, courses.StatusProcessing); err != nil || !ok {
		t.Fatalf("TransitionStatus: ok=%v err=%v", ok, err)
	}

	got, err := js.ResetCourse(ctx, nil, c.ID, "")
	if err != nil {
		t.Fatalf("ResetCourse: %v", err)
	}
	if got.Status != courses.StatusPending {
		t.Fatalf("status: want=%s got=%s", courses.StatusPending, got.Status)
	}
	if len(bus.events) != 1 || bus.events[0].From != courses.StatusProcessing || bus.events[0].Reason != reasonOperatorReset {
		t.Fatalf("events: got=%+v", bus.events)
	}
}

func TestResetCourseRejectsActiveStatuses(t *testing.T) {
	js, _, _ := newTestService(t)
	ctx := context.Background()
	c, err := js.EnqueueCourse(ctx, nil, "Intro to Go", "", "")
	if err != nil {
		t.Fatalf("EnqueueCourse: %v", err)
	}
	if _, err := js.ResetCourse(ctx, nil, c.ID, ""); !errors.Is(err, apierr.ErrStatusConflict) {
		t.Fatalf("reset pending: want ErrStatusConflict got=%v", err)
	}
	if _, err := js.ResetCourse(ctx, nil, c.ID, "DONE"); !errors.Is(err, apierr.ErrInvalidStatus) {
		t.Fatalf("reset to DONE: want ErrInvalidStatus got=%v", err)
	}
}

func TestResetChapterRejectsPendingAndStats(t *testing.T) {
	js, _, _ := newTestService(t)
	ctx := context.Background()
	c, err := js.EnqueueCourse(ctx, nil, "Intro to Go", "", "")
	if err != nil {
		t.Fatalf("EnqueueCourse: %v", err)
	}
	ch, err := js.EnqueueChapter(ctx, nil, c.ID, 1, "Basics")
	if err != nil {
		t.Fatalf("EnqueueChapter: %v", err)
	}
	if _, err := js.ResetChapter(ctx, nil, ch.ID, "pending"); !errors.Is(err, apierr.ErrStatusConflict) {
		t.Fatalf("reset pending chapter: want ErrStatusConflict got=%v", err)
	}

	stats, err := js.Stats(ctx, nil)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats.Courses) != 1 || len(stats.Chapters) != 1 || stats.Chapters[0].Count != 1 {
		t.Fatalf("stats: got=%+v", stats)
	}
}
