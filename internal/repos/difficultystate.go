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

type DifficultyStateRepo interface {
	Get(ctx context.Context, tx *gorm.DB, questionID uuid.UUID, cohort string) (*types.DifficultyState, error)
	// GetForUpdate row-locks the state so concurrent attempts against the
	// same question serialize. On sqlite the lock clause is skipped; the
	// single-writer database serializes anyway.
	GetForUpdate(ctx context.Context, tx *gorm.DB, questionID uuid.UUID, cohort string) (*types.DifficultyState, error)
	ListByQuestionIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID, cohort string) ([]*types.DifficultyState, error)
	Upsert(ctx context.Context, tx *gorm.DB, state *types.DifficultyState) error
}

type difficultyStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDifficultyStateRepo(db *gorm.DB, baseLog *logger.Logger) DifficultyStateRepo {
	return &difficultyStateRepo{
		db:  db,
		log: baseLog.With("repo", "DifficultyStateRepo"),
	}
}

func (r *difficultyStateRepo) Get(ctx context.Context, tx *gorm.DB, questionID uuid.UUID, cohort string) (*types.DifficultyState, error) {
	return r.get(ctx, tx, questionID, cohort, false)
}

func (r *difficultyStateRepo) GetForUpdate(ctx context.Context, tx *gorm.DB, questionID uuid.UUID, cohort string) (*types.DifficultyState, error) {
	return r.get(ctx, tx, questionID, cohort, true)
}

func (r *difficultyStateRepo) get(ctx context.Context, tx *gorm.DB, questionID uuid.UUID, cohort string, forUpdate bool) (*types.DifficultyState, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if questionID == uuid.Nil {
		return nil, nil
	}
	q := transaction.WithContext(ctx).
		Where("question_id = ? AND cohort = ?", questionID, cohort).
		Limit(1)
	if forUpdate && transaction.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row types.DifficultyState
	if err := q.Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *difficultyStateRepo) ListByQuestionIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID, cohort string) ([]*types.DifficultyState, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.DifficultyState
	if len(questionIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("question_id IN ? AND cohort = ?", questionIDs, cohort).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *difficultyStateRepo) Upsert(ctx context.Context, tx *gorm.DB, state *types.DifficultyState) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if state == nil || state.QuestionID == uuid.Nil {
		return nil
	}
	if state.ID == uuid.Nil {
		state.ID = uuid.New()
	}
	state.UpdatedAt = time.Now()
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "question_id"}, {Name: "cohort"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"rating", "attempts", "correct", "p_correct_cached",
				"algo_version_id", "params_id", "run_id", "updated_at",
			}),
		}).
		Create(state).Error
}
