package repos

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/abdullah0408/server/internal/db"
	"github.com/abdullah0408/server/internal/domain/courses"
	"github.com/abdullah0408/server/internal/domain/jobs"
	"github.com/abdullah0408/server/internal/platform/logger"
)

func newTestDB(t *testing.T) (*gorm.DB, *logger.Logger) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	svc, err := db.NewFromDialector(log, sqlite.Open(dsn))
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
	return svc.DB(), log
}

func seedCourses(t *testing.T, repo CourseRepo, statuses ...string) []*courses.Course {
	t.Helper()
	base := time.Now().UTC().Add(-time.Hour)
	rows := make([]*courses.Course, 0, len(statuses))
	for i, st := range statuses {
		rows = append(rows, &courses.Course{
			Title:     fmt.Sprintf("course %d", i),
			Status:    st,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	out, err := repo.Create(context.Background(), nil, rows)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return out
}

func TestCreateDefaultsToPending(t *testing.T) {
	gdb, log := newTestDB(t)
	repo := NewCourseRepo(gdb, log)

	rows := seedCourses(t, repo, "")
	got, err := repo.GetByID(context.Background(), nil, rows[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Status != courses.StatusPending {
		t.Fatalf("status: want=%s got=%+v", courses.StatusPending, got)
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	gdb, log := newTestDB(t)
	repo := NewCourseRepo(gdb, log)

	got, err := repo.GetByID(context.Background(), nil, uuid.New())
	if err != nil || got != nil {
		t.Fatalf("GetByID: want nil,nil got=%v,%v", got, err)
	}
}

func TestClaimOldestPicksEarliestCreated(t *testing.T) {
	gdb, log := newTestDB(t)
	repo := NewCourseRepo(gdb, log)
	rows := seedCourses(t, repo, courses.StatusApprovedLayout, courses.StatusPending, courses.StatusPending)

	job, err := repo.ClaimOldest(context.Background(), nil, courses.StatusPending, courses.StatusProcessing)
	if err != nil {
		t.Fatalf("ClaimOldest: %v", err)
	}
	if job == nil || job.ID != rows[1].ID {
		t.Fatalf("claimed: want=%s got=%+v", rows[1].ID, job)
	}
	if job.Entity != jobs.EntityCourse || job.ClaimedFrom != courses.StatusPending {
		t.Fatalf("job: got=%+v", job)
	}
	got, _ := repo.GetByID(context.Background(), nil, rows[1].ID)
	if got.Status != courses.StatusProcessing {
		t.Fatalf("status: want=%s got=%s", courses.StatusProcessing, got.Status)
	}
	other, _ := repo.GetByID(context.Background(), nil, rows[2].ID)
	if other.Status != courses.StatusPending {
		t.Fatalf("other status: want=%s got=%s", courses.StatusPending, other.Status)
	}
}

func TestClaimOldestEmpty(t *testing.T) {
	gdb, log := newTestDB(t)
	repo := NewCourseRepo(gdb, log)
	seedCourses(t, repo, courses.StatusFailed)

	job, err := repo.ClaimOldest(context.Background(), nil, courses.StatusPending, courses.StatusProcessing)
	if err != nil || job != nil {
		t.Fatalf("ClaimOldest: want nil,nil got=%+v,%v", job, err)
	}
}

func TestTransitionStatusIsConditional(t *testing.T) {
	gdb, log := newTestDB(t)
	repo := NewCourseRepo(gdb, log)
	rows := seedCourses(t, repo, courses.StatusProcessing)
	ctx := context.Background()

	ok, err := repo.TransitionStatus(ctx, nil, rows[0].ID, courses.StatusPending, courses.StatusFailed)
	if err != nil || ok {
		t.Fatalf("stale from: want false,nil got=%v,%v", ok, err)
	}
	ok, err = repo.TransitionStatus(ctx, nil, rows[0].ID, courses.StatusProcessing, courses.StatusApprovedLayout)
	if err != nil || !ok {
		t.Fatalf("matching from: want true,nil got=%v,%v", ok, err)
	}
	got, _ := repo.GetByID(ctx, nil, rows[0].ID)
	if got.Status != courses.StatusApprovedLayout {
		t.Fatalf("status: want=%s got=%s", courses.StatusApprovedLayout, got.Status)
	}
}

func TestConcurrentTransitionHasOneWinner(t *testing.T) {
	gdb, log := newTestDB(t)
	repo := NewCourseRepo(gdb, log)
	rows := seedCourses(t, repo, courses.StatusPending)

	const n = 8
	var wg sync.WaitGroup
	wins := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.TransitionStatus(context.Background(), nil, rows[0].ID, courses.StatusPending, courses.StatusProcessing)
			if err != nil {
				t.Errorf("TransitionStatus: %v", err)
			}
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)
	count := 0
	for ok := range wins {
		if ok {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("winners: want=1 got=%d", count)
	}
}

func TestConcurrentClaimsNeverShareAJob(t *testing.T) {
	gdb, log := newTestDB(t)
	repo := NewChapterRepo(gdb, log)
	courseID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	var seeded []*courses.Chapter
	for i := 0; i < 3; i++ {
		seeded = append(seeded, &courses.Chapter{CourseID: courseID, ChapterNumber: i + 1, CreatedAt: base.Add(time.Duration(i) * time.Second)})
	}
	if _, err := repo.Create(context.Background(), nil, seeded); err != nil {
		t.Fatalf("Create: %v", err)
	}

	const n = 6
	var wg sync.WaitGroup
	var mu sync.Mutex
	claimed := map[uuid.UUID]int{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := repo.ClaimOldest(context.Background(), nil, courses.ChapterStatusPending, courses.ChapterStatusProcessing)
			if err != nil {
				t.Errorf("ClaimOldest: %v", err)
				return
			}
			if job == nil {
				return
			}
			mu.Lock()
			claimed[job.ID]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(claimed) != 3 {
		t.Fatalf("distinct claims: want=3 got=%d", len(claimed))
	}
	for id, c := range claimed {
		if c != 1 {
			t.Fatalf("job %s claimed %d times", id, c)
		}
	}
}

func TestCountByStatus(t *testing.T) {
	gdb, log := newTestDB(t)
	repo := NewCourseRepo(gdb, log)
	seedCourses(t, repo, courses.StatusPending, courses.StatusPending, courses.StatusFailed)

	counts, err := repo.CountByStatus(context.Background(), nil)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	got := map[string]int64{}
	for _, c := range counts {
		got[c.Status] = c.Count
	}
	if got[courses.StatusPending] != 2 || got[courses.StatusFailed] != 1 {
		t.Fatalf("counts: got=%v", got)
	}
}

func TestListByCourseOrdersByNumber(t *testing.T) {
	gdb, log := newTestDB(t)
	repo := NewChapterRepo(gdb, log)
	courseID := uuid.New()
	rows := []*courses.Chapter{
		{CourseID: courseID, ChapterNumber: 2},
		{CourseID: courseID, ChapterNumber: 1},
		{CourseID: uuid.New(), ChapterNumber: 1},
	}
	if _, err := repo.Create(context.Background(), nil, rows); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.ListByCourse(context.Background(), nil, courseID)
	if err != nil {
		t.Fatalf("ListByCourse: %v", err)
	}
	if len(got) != 2 || got[0].ChapterNumber != 1 || got[1].ChapterNumber != 2 {
		t.Fatalf("chapters: got=%+v", got)
	}
}

func TestResolveClaimNeedsCurrentClaim(t *testing.T) {
	gdb, log := newTestDB(t)
	repo := NewCourseRepo(gdb, log)
	ctx := context.Background()
	rows := seedCourses(t, repo, courses.StatusPending)

	first, err := repo.ClaimOldest(ctx, nil, courses.StatusPending, courses.StatusProcessing)
	if err != nil || first == nil || first.ClaimID == uuid.Nil {
		t.Fatalf("first claim: got=%+v err=%v", first, err)
	}
	// Moved on outside the first run, then claimed again.
	if ok, err := repo.TransitionStatus(ctx, nil, rows[0].ID, courses.StatusProcessing, courses.StatusApprovedLayout); err != nil || !ok {
		t.Fatalf("TransitionStatus: ok=%v err=%v", ok, err)
	}
	second, err := repo.ClaimOldest(ctx, nil, courses.StatusApprovedLayout, courses.StatusProcessing)
	if err != nil || second == nil || second.ClaimID == first.ClaimID {
		t.Fatalf("second claim: got=%+v err=%v", second, err)
	}

	ok, err := repo.ResolveClaim(ctx, nil, rows[0].ID, first.ClaimID, courses.StatusProcessing, courses.StatusApprovedLayout)
	if err != nil || ok {
		t.Fatalf("stale ResolveClaim: want false got ok=%v err=%v", ok, err)
	}
	got, _ := repo.GetByID(ctx, nil, rows[0].ID)
	if got.Status != courses.StatusProcessing {
		t.Fatalf("status: want=%s got=%s", courses.StatusProcessing, got.Status)
	}

	ok, err = repo.ResolveClaim(ctx, nil, rows[0].ID, second.ClaimID, courses.StatusProcessing, courses.StatusChaptersCreated)
	if err != nil || !ok {
		t.Fatalf("current ResolveClaim: want true got ok=%v err=%v", ok, err)
	}
	got, _ = repo.GetByID(ctx, nil, rows[0].ID)
	if got.Status != courses.StatusChaptersCreated || got.ClaimID != nil {
		t.Fatalf("row: want %s with claim cleared got status=%s claim=%v", courses.StatusChaptersCreated, got.Status, got.ClaimID)
	}
	if ok, _ := repo.ResolveClaim(ctx, nil, rows[0].ID, uuid.Nil, courses.StatusChaptersCreated, courses.StatusPending); ok {
		t.Fatalf("ResolveClaim with nil claim: want false")
	}
}
