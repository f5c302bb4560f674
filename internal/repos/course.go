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

type CourseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*courses.Course) ([]*courses.Course, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*courses.Course, error)
	// Moves the oldest course in status from to status to (SKIP LOCKED on postgres).
	ClaimOldest(ctx context.Context, tx *gorm.DB, from, to string) (*jobs.Job, error)
	TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to string) (bool, error)
	// Like TransitionStatus, but only while the row still holds claimID.
	ResolveClaim(ctx context.Context, tx *gorm.DB, id, claimID uuid.UUID, from, to string) (bool, error)
	CountByStatus(ctx context.Context, tx *gorm.DB) ([]StatusCount, error)
}

type courseRepo struct {
	db    *gorm.DB
	log   *logger.Logger
	table *statusTable
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	log := baseLog.With("repo", "CourseRepo")
	return &courseRepo{
		db:  db,
		log: log,
		table: &statusTable{
			db:       db,
			log:      log,
			entity:   jobs.EntityCourse,
			newModel: func() interface{} { return &courses.Course{} },
		},
	}
}

func (r *courseRepo) Create(ctx context.Context, tx *gorm.DB, rows []*courses.Course) ([]*courses.Course, error) {
	if len(rows) == 0 {
		return []*courses.Course{}, nil
	}
	if err := r.table.conn(tx).WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *courseRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*courses.Course, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var c courses.Course
	err := r.table.conn(tx).WithContext(ctx).Where("id = ?", id).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *courseRepo) ClaimOldest(ctx context.Context, tx *gorm.DB, from, to string) (*jobs.Job, error) {
	return r.table.claimOldest(ctx, tx, from, to)
}

func (r *courseRepo) TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to string) (bool, error) {
	return r.table.transition(ctx, tx, id, from, to)
}

func (r *courseRepo) ResolveClaim(ctx context.Context, tx *gorm.DB, id, claimID uuid.UUID, from, to string) (bool, error) {
	return r.table.resolveClaim(ctx, tx, id, claimID, from, to)
}

func (r *courseRepo) CountByStatus(ctx context.Context, tx *gorm.DB) ([]StatusCount, error) {
	return r.table.countByStatus(ctx, tx)
}
