package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/types"
)

type RevisionQueueRepo interface {
	// UpsertEntries writes queue rows keyed on (user_id, theme_id, due_date).
	// Re-running with unchanged inputs rewrites the same rows, never
	// duplicates.
	UpsertEntries(ctx context.Context, tx *gorm.DB, entries []*types.RevisionEntry) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.RevisionEntry, error)
	ListDueByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, asOf time.Time) ([]*types.RevisionEntry, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error
}

type revisionQueueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRevisionQueueRepo(db *gorm.DB, baseLog *logger.Logger) RevisionQueueRepo {
	return &revisionQueueRepo{
		db:  db,
		log: baseLog.With("repo", "RevisionQueueRepo"),
	}
}

func (r *revisionQueueRepo) UpsertEntries(ctx context.Context, tx *gorm.DB, entries []*types.RevisionEntry) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entries) == 0 {
		return nil
	}
	now := time.Now()
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.UpdatedAt = now
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "theme_id"}, {Name: "due_date"}},
			// Status stays out of the conflict update: regeneration refreshes
			// scores, but a DONE/SNOOZED/SKIPPED mark belongs to the user.
			DoUpdates: clause.AssignmentColumns([]string{
				"priority_score", "recommended_count", "reason",
				"algo_version_id", "params_id", "run_id", "updated_at",
			}),
		}).
		Create(&entries).Error
}

func (r *revisionQueueRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.RevisionEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.RevisionEntry
	if userID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("due_date ASC, priority_score DESC, theme_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *revisionQueueRepo) ListDueByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, asOf time.Time) ([]*types.RevisionEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.RevisionEntry
	if userID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND status = ? AND due_date <= ?", userID, types.RevisionDue, asOf).
		Order("priority_score DESC, theme_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *revisionQueueRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.RevisionEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}
