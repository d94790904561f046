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

type MasteryStateRepo interface {
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, themeID uuid.UUID) (*types.MasteryState, error)
	// GetForUpdate row-locks the state so concurrent attempts on the same
	// (user, theme) serialize their read-modify-write. On sqlite the lock
	// clause is skipped; the single-writer database serializes anyway.
	GetForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, themeID uuid.UUID) (*types.MasteryState, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.MasteryState, error)
	Upsert(ctx context.Context, tx *gorm.DB, state *types.MasteryState) error
}

type masteryStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMasteryStateRepo(db *gorm.DB, baseLog *logger.Logger) MasteryStateRepo {
	return &masteryStateRepo{
		db:  db,
		log: baseLog.With("repo", "MasteryStateRepo"),
	}
}

func (r *masteryStateRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, themeID uuid.UUID) (*types.MasteryState, error) {
	return r.get(ctx, tx, userID, themeID, false)
}

func (r *masteryStateRepo) GetForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, themeID uuid.UUID) (*types.MasteryState, error) {
	return r.get(ctx, tx, userID, themeID, true)
}

func (r *masteryStateRepo) get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, themeID uuid.UUID, forUpdate bool) (*types.MasteryState, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || themeID == uuid.Nil {
		return nil, nil
	}
	q := transaction.WithContext(ctx).
		Where("user_id = ? AND theme_id = ?", userID, themeID).
		Limit(1)
	if forUpdate && transaction.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row types.MasteryState
	if err := q.Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *masteryStateRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.MasteryState, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.MasteryState
	if userID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("theme_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *masteryStateRepo) Upsert(ctx context.Context, tx *gorm.DB, state *types.MasteryState) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if state == nil || state.UserID == uuid.Nil || state.ThemeID == uuid.Nil {
		return nil
	}
	if state.ID == uuid.Nil {
		state.ID = uuid.New()
	}
	state.UpdatedAt = time.Now()
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "theme_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"attempts_total", "correct_total", "mastery_score", "last_attempt_at",
				"algo_version_id", "params_id", "run_id", "updated_at",
			}),
		}).
		Create(state).Error
}
