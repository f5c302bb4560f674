package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abdullah0408/server/internal/domain/courses"
	"github.com/abdullah0408/server/internal/domain/jobs"
	"github.com/abdullah0408/server/internal/platform/logger"
)

type ChapterRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*courses.Chapter) ([]*courses.Chapter, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*courses.Chapter, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*courses.Chapter, error)
	ClaimOldest(ctx context.Context, tx *gorm.DB, from, to string) (*jobs.Job, error)
	TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to string) (bool, error)
	// Like TransitionStatus, but only while the row still holds claimID.
	ResolveClaim(ctx context.Context, tx *gorm.DB, id, claimID uuid.UUID, from, to string) (bool, error)
	CountByStatus(ctx context.Context, tx *gorm.DB) ([]StatusCount, error)
}

type chapterRepo struct {
	db    *gorm.DB
	log   *logger.Logger
	table *statusTable
}

func NewChapterRepo(db *gorm.DB, baseLog *logger.Logger) ChapterRepo {
	log := baseLog.With("repo", "ChapterRepo")
	return &chapterRepo{
		db:  db,
		log: log,
		table: &statusTable{
			db:       db,
			log:      log,
			entity:   jobs.EntityChapter,
			newModel: func() interface{} { return &courses.Chapter{} },
		},
	}
}

func (r *chapterRepo) Create(ctx context.Context, tx *gorm.DB, rows []*courses.Chapter) ([]*courses.Chapter, error) {
	if len(rows) == 0 {
		return []*courses.Chapter{}, nil
	}
	if err := r.table.conn(tx).WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *chapterRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*courses.Chapter, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var ch courses.Chapter
	err := r.table.conn(tx).WithContext(ctx).Where("id = ?", id).Take(&ch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *chapterRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*courses.Chapter, error) {
	var out []*courses.Chapter
	if courseID == uuid.Nil {
		return out, nil
	}
	if err := r.table.conn(tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("chapter_number ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chapterRepo) ClaimOldest(ctx context.Context, tx *gorm.DB, from, to string) (*jobs.Job, error) {
	return r.table.claimOldest(ctx, tx, from, to)
}

func (r *chapterRepo) TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to string) (bool, error) {
	return r.table.transition(ctx, tx, id, from, to)
}

func (r *chapterRepo) ResolveClaim(ctx context.Context, tx *gorm.DB, id, claimID uuid.UUID, from, to string) (bool, error) {
	return r.table.resolveClaim(ctx, tx, id, claimID, from, to)
}

func (r *chapterRepo) CountByStatus(ctx context.Context, tx *gorm.DB) ([]StatusCount, error) {
	return r.table.countByStatus(ctx, tx)
}
