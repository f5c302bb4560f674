package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abdullah0408/server/internal/domain/courses"
	"github.com/abdullah0408/server/internal/domain/jobs"
	"github.com/abdullah0408/server/internal/platform/apierr"
	"github.com/abdullah0408/server/internal/platform/events"
	"github.com/abdullah0408/server/internal/platform/logger"
	"github.com/abdullah0408/server/internal/repos"
)

const reasonOperatorReset = "operator_reset"

type JobStats struct {
	Courses  []repos.StatusCount `json:"courses"`
	Chapters []repos.StatusCount `json:"chapters"`
}

// JobService is the operator side of the job tables: creating jobs, looking
// them up and resetting stuck or failed ones.
type JobService interface {
	EnqueueCourse(ctx context.Context, tx *gorm.DB, title, description, difficulty string) (*courses.Course, error)
	EnqueueChapter(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, number int, title string) (*courses.Chapter, error)
	GetCourse(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*courses.Course, error)
	GetChapter(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*courses.Chapter, error)
	ListChapters(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*courses.Chapter, error)
	ResetCourse(ctx context.Context, tx *gorm.DB, id uuid.UUID, to string) (*courses.Course, error)
	ResetChapter(ctx context.Context, tx *gorm.DB, id uuid.UUID, to string) (*courses.Chapter, error)
	Stats(ctx context.Context, tx *gorm.DB) (*JobStats, error)
}

type jobService struct {
	log         *logger.Logger
	courseRepo  repos.CourseRepo
	chapterRepo repos.ChapterRepo
	bus         events.Bus
}

func NewJobService(baseLog *logger.Logger, courseRepo repos.CourseRepo, chapterRepo repos.ChapterRepo, bus events.Bus) JobService {
	return &jobService{
		log:         baseLog.With("service", "JobService"),
		courseRepo:  courseRepo,
		chapterRepo: chapterRepo,
		bus:         bus,
	}
}

func (s *jobService) EnqueueCourse(ctx context.Context, tx *gorm.DB, title, description, difficulty string) (*courses.Course, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_title", fmt.Errorf("missing title"))
	}
	rows, err := s.courseRepo.Create(ctx, tx, []*courses.Course{{
		Title:       title,
		Description: strings.TrimSpace(description),
		Difficulty:  strings.TrimSpace(difficulty),
		Status:      courses.StatusPending,
	}})
	if err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	s.log.Info("Course enqueued", "course_id", rows[0].ID)
	return rows[0], nil
}

func (s *jobService) EnqueueChapter(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, number int, title string) (*courses.Chapter, error) {
	course, err := s.courseRepo.GetByID(ctx, tx, courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, fmt.Errorf("course %s: %w", courseID, apierr.ErrNotFound)
	}
	rows, err := s.chapterRepo.Create(ctx, tx, []*courses.Chapter{{
		CourseID:      courseID,
		ChapterNumber: number,
		Title:         strings.TrimSpace(title),
		Status:        courses.ChapterStatusPending,
	}})
	if err != nil {
		return nil, fmt.Errorf("create chapter: %w", err)
	}
	s.log.Info("Chapter enqueued", "chapter_id", rows[0].ID, "course_id", courseID)
	return rows[0], nil
}

func (s *jobService) GetCourse(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*courses.Course, error) {
	c, err := s.courseRepo.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("course %s: %w", id, apierr.ErrNotFound)
	}
	return c, nil
}

func (s *jobService) GetChapter(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*courses.Chapter, error) {
	ch, err := s.chapterRepo.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("chapter %s: %w", id, apierr.ErrNotFound)
	}
	return ch, nil
}

func (s *jobService) ListChapters(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*courses.Chapter, error) {
	return s.chapterRepo.ListByCourse(ctx, tx, courseID)
}

// ResetCourse moves a course that is stuck in PROCESSING, or parked in a
// failure status, back to an entry status. The move is conditional on the
// status read here, so a pipeline finishing concurrently wins.
func (s *jobService) ResetCourse(ctx context.Context, tx *gorm.DB, id uuid.UUID, to string) (*courses.Course, error) {
	to = normalizeTarget(to, courses.StatusPending)
	if to != courses.StatusPending && to != courses.StatusApprovedLayout {
		return nil, fmt.Errorf("course reset target %q: %w", to, apierr.ErrInvalidStatus)
	}
	c, err := s.GetCourse(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	from := c.Status
	if from != courses.StatusProcessing && !courses.IsTerminalFailure(from) {
		return nil, fmt.Errorf("course %s is %s: %w", id, from, apierr.ErrStatusConflict)
	}
	ok, err := s.courseRepo.TransitionStatus(ctx, tx, id, from, to)
	if err != nil {
		return nil, fmt.Errorf("reset course: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("course %s moved during reset: %w", id, apierr.ErrStatusConflict)
	}
	s.log.Warn("Course reset by operator", "course_id", id, "from", from, "to", to)
	s.publish(ctx, jobs.EntityCourse, id, from, to)
	c.Status = to
	return c, nil
}

func (s *jobService) ResetChapter(ctx context.Context, tx *gorm.DB, id uuid.UUID, to string) (*courses.Chapter, error) {
	to = normalizeTarget(to, courses.ChapterStatusPending)
	if to != courses.ChapterStatusPending {
		return nil, fmt.Errorf("chapter reset target %q: %w", to, apierr.ErrInvalidStatus)
	}
	ch, err := s.GetChapter(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	from := ch.Status
	if from != courses.ChapterStatusProcessing && from != courses.ChapterStatusFailed {
		return nil, fmt.Errorf("chapter %s is %s: %w", id, from, apierr.ErrStatusConflict)
	}
	ok, err := s.chapterRepo.TransitionStatus(ctx, tx, id, from, to)
	if err != nil {
		return nil, fmt.Errorf("reset chapter: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("chapter %s moved during reset: %w", id, apierr.ErrStatusConflict)
	}
	s.log.Warn("Chapter reset by operator", "chapter_id", id, "from", from, "to", to)
	s.publish(ctx, jobs.EntityChapter, id, from, to)
	ch.Status = to
	return ch, nil
}

func (s *jobService) Stats(ctx context.Context, tx *gorm.DB) (*JobStats, error) {
	cs, err := s.courseRepo.CountByStatus(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("count courses: %w", err)
	}
	chs, err := s.chapterRepo.CountByStatus(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("count chapters: %w", err)
	}
	return &JobStats{Courses: cs, Chapters: chs}, nil
}

func (s *jobService) publish(ctx context.Context, entity jobs.Entity, id uuid.UUID, from, to string) {
	if s.bus == nil {
		return
	}
	err := s.bus.Publish(ctx, events.StatusEvent{
		Entity: string(entity),
		JobID:  id,
		From:   from,
		To:     to,
		Reason: reasonOperatorReset,
		At:     time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("Status event publish failed", "entity", entity, "id", id, "error", err)
	}
}

func normalizeTarget(to, def string) string {
	to = strings.ToUpper(strings.TrimSpace(to))
	if to == "" {
		return def
	}
	return to
}
