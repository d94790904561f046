package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/types"
)

// ClaimPolicy bounds which jobs count as runnable: fresh queued jobs, failed
// jobs under the attempt budget past their retry delay, and running jobs
// whose heartbeat went stale (crashed worker).
type ClaimPolicy struct {
	MaxAttempts  int
	RetryDelay   time.Duration
	StaleRunning time.Duration
}

type QueuedJobRepo interface {
	Enqueue(ctx context.Context, tx *gorm.DB, job *types.QueuedJob) (*types.QueuedJob, error)
	// ClaimNextRunnable picks the oldest runnable job and marks it running
	// in one transaction. Returns nil when nothing is runnable.
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, policy ClaimPolicy) (*types.QueuedJob, error)
	MarkSuccess(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, cause string) error
	Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.QueuedJob, error)
}

type queuedJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQueuedJobRepo(db *gorm.DB, baseLog *logger.Logger) QueuedJobRepo {
	return &queuedJobRepo{
		db:  db,
		log: baseLog.With("repo", "QueuedJobRepo"),
	}
}

func (r *queuedJobRepo) Enqueue(ctx context.Context, tx *gorm.DB, job *types.QueuedJob) (*types.QueuedJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = types.JobQueued
	}
	if err := transaction.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *queuedJobRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, policy ClaimPolicy) (*types.QueuedJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	retryCutoff := now.Add(-policy.RetryDelay)
	staleCutoff := now.Add(-policy.StaleRunning)

	var claimed *types.QueuedJob
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		q := txx.Where(`
			(
				status = ?
				OR (
					status = ?
					AND attempts < ?
					AND (last_error_at IS NULL OR last_error_at < ?)
				)
				OR (
					status = ?
					AND heartbeat_at IS NOT NULL
					AND heartbeat_at < ?
				)
			)
		`, types.JobQueued, types.JobFailed, policy.MaxAttempts, retryCutoff, types.JobRunning, staleCutoff).
			Order("created_at ASC, id ASC")
		if txx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		var job types.QueuedJob
		qErr := q.First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}

		if uErr := txx.Model(&types.QueuedJob{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":       types.JobRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error; uErr != nil {
			return uErr
		}
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *queuedJobRepo) MarkSuccess(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.updateStatus(ctx, tx, id, map[string]interface{}{
		"status":     types.JobSuccess,
		"updated_at": time.Now(),
	})
}

func (r *queuedJobRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, cause string) error {
	now := time.Now()
	return r.updateStatus(ctx, tx, id, map[string]interface{}{
		"status":        types.JobFailed,
		"last_error":    cause,
		"last_error_at": now,
		"updated_at":    now,
	})
}

func (r *queuedJobRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	now := time.Now()
	return r.updateStatus(ctx, tx, id, map[string]interface{}{
		"heartbeat_at": now,
		"updated_at":   now,
	})
}

func (r *queuedJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.QueuedJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.QueuedJob
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *queuedJobRepo) updateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.QueuedJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}
