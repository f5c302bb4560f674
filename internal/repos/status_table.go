package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/abdullah0408/server/internal/domain/jobs"
	"github.com/abdullah0408/server/internal/platform/logger"
)

// statusTable implements the coordination queries shared by every table whose
// rows are driven through a status column by the job runtime.
type statusTable struct {
	db       *gorm.DB
	log      *logger.Logger
	entity   jobs.Entity
	newModel func() interface{}
}

type claimRow struct {
	ID        uuid.UUID
	CreatedAt time.Time
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

func (t *statusTable) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return t.db
}

// claimOldest picks the oldest row in status from and moves it to status to,
// stamping a fresh claim id on it. The move is conditioned on the row still
// being in from, so when two runners pick the same row only one of them gets it
// back; the other gets nil.
func (t *statusTable) claimOldest(ctx context.Context, tx *gorm.DB, from, to string) (*jobs.Job, error) {
	var claimed *jobs.Job
	err := t.conn(tx).WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var row claimRow
		q := txx.Model(t.newModel()).
			Select("id", "created_at").
			Where("status = ?", from).
			Order("created_at ASC").
			Order("id ASC")
		if supportsRowLocks(txx) {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		qErr := q.Take(&row).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		claimID := uuid.New()
		ok, uErr := t.conditionalUpdate(ctx, txx, row.ID, from, uuid.Nil, map[string]interface{}{
			"status":   to,
			"claim_id": claimID,
		})
		if uErr != nil {
			return uErr
		}
		if !ok {
			t.log.Debug("Claim lost", "entity", t.entity, "id", row.ID, "from", from)
			return nil
		}
		claimed = &jobs.Job{
			ID:          row.ID,
			ClaimID:     claimID,
			Entity:      t.entity,
			ClaimedFrom: from,
			CreatedAt:   row.CreatedAt,
			ClaimedAt:   time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		if isClaimContention(err) {
			t.log.Debug("Claim contention", "entity", t.entity, "from", from, "error", err)
			return nil, nil
		}
		return nil, err
	}
	return claimed, nil
}

// transition sets status to `to` only when it currently equals `from`. The
// boolean is the definite outcome of that precondition.
func (t *statusTable) transition(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to string) (bool, error) {
	return t.conditionalUpdate(ctx, tx, id, from, uuid.Nil, map[string]interface{}{"status": to})
}

// resolveClaim is transition with the extra precondition that the row still
// carries claimID. A row claimed again since then is left alone.
func (t *statusTable) resolveClaim(ctx context.Context, tx *gorm.DB, id, claimID uuid.UUID, from, to string) (bool, error) {
	if claimID == uuid.Nil {
		return false, nil
	}
	return t.conditionalUpdate(ctx, tx, id, from, claimID, map[string]interface{}{
		"status":   to,
		"claim_id": nil,
	})
}

func (t *statusTable) conditionalUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID, from string, claimID uuid.UUID, fields map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	q := t.conn(tx).WithContext(ctx).
		Model(t.newModel()).
		Where("id = ? AND status = ?", id, from)
	if claimID != uuid.Nil {
		q = q.Where("claim_id = ?", claimID)
	}
	fields["updated_at"] = time.Now().UTC()
	res := q.Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (t *statusTable) countByStatus(ctx context.Context, tx *gorm.DB) ([]StatusCount, error) {
	var out []StatusCount
	err := t.conn(tx).WithContext(ctx).
		Model(t.newModel()).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status ASC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func supportsRowLocks(db *gorm.DB) bool {
	return db != nil && db.Dialector != nil && db.Dialector.Name() == "postgres"
}

// isClaimContention reports postgres errors that only mean another runner was
// working on the same rows at the same moment.
func isClaimContention(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return true
	default:
		return false
	}
}
