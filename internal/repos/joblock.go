package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/types"
)

type JobLockRepo interface {
	// AcquireLease atomically inserts the lease, or takes over an expired
	// one. Returns false when an unexpired lease is held by someone else.
	AcquireLease(ctx context.Context, tx *gorm.DB, jobKey string, owner string, until time.Time) (bool, error)
	// ReleaseLease expires the lease immediately. Only the owner's lease is
	// touched; a stale release from a previous holder is a no-op.
	ReleaseLease(ctx context.Context, tx *gorm.DB, jobKey string, owner string) error
	Get(ctx context.Context, tx *gorm.DB, jobKey string) (*types.JobLock, error)
}

type jobLockRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobLockRepo(db *gorm.DB, baseLog *logger.Logger) JobLockRepo {
	return &jobLockRepo{
		db:  db,
		log: baseLog.With("repo", "JobLockRepo"),
	}
}

func (r *jobLockRepo) AcquireLease(ctx context.Context, tx *gorm.DB, jobKey string, owner string, until time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if jobKey == "" || owner == "" {
		return false, nil
	}
	now := time.Now()
	lock := &types.JobLock{
		JobKey:      jobKey,
		LockedUntil: until,
		LockedBy:    owner,
	}
	// Insert-if-absent-or-expired: the conflict update only fires when the
	// existing lease has expired, so rows-affected doubles as the verdict.
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "job_key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"locked_until": until,
				"locked_by":    owner,
				"updated_at":   now,
			}),
			Where: clause.Where{
				Exprs: []clause.Expression{
					gorm.Expr("job_lock.locked_until < ?", now),
				},
			},
		}).
		Create(lock)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobLockRepo) ReleaseLease(ctx context.Context, tx *gorm.DB, jobKey string, owner string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if jobKey == "" {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.JobLock{}).
		Where("job_key = ? AND locked_by = ?", jobKey, owner).
		Updates(map[string]interface{}{
			"locked_until": now,
			"updated_at":   now,
		}).Error
}

func (r *jobLockRepo) Get(ctx context.Context, tx *gorm.DB, jobKey string) (*types.JobLock, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if jobKey == "" {
		return nil, nil
	}
	var row types.JobLock
	err := transaction.WithContext(ctx).
		Where("job_key = ?", jobKey).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.JobKey == "" {
		return nil, nil
	}
	return &row, nil
}
