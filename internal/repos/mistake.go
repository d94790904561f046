package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/types"
)

type MistakeRepo interface {
	// Create inserts the classification for an attempt. Classifications are
	// immutable: a second insert for the same attempt is silently ignored.
	Create(ctx context.Context, tx *gorm.DB, m *types.MistakeClassification) (*types.MistakeClassification, error)
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID) (*types.MistakeClassification, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.MistakeClassification, error)
	CountByType(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[string]int64, error)
}

type mistakeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMistakeRepo(db *gorm.DB, baseLog *logger.Logger) MistakeRepo {
	return &mistakeRepo{
		db:  db,
		log: baseLog.With("repo", "MistakeRepo"),
	}
}

func (r *mistakeRepo) Create(ctx context.Context, tx *gorm.DB, m *types.MistakeClassification) (*types.MistakeClassification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if m == nil || m.AttemptID == uuid.Nil {
		return nil, nil
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}},
			DoNothing: true,
		}).
		Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (r *mistakeRepo) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID) (*types.MistakeClassification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if attemptID == uuid.Nil {
		return nil, nil
	}
	var row types.MistakeClassification
	err := transaction.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *mistakeRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.MistakeClassification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.MistakeClassification
	if userID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 100
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mistakeRepo) CountByType(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[string]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	out := map[string]int64{}
	if userID == uuid.Nil {
		return out, nil
	}
	type bucket struct {
		MistakeType string
		N           int64
	}
	var rows []bucket
	if err := transaction.WithContext(ctx).
		Model(&types.MistakeClassification{}).
		Select("mistake_type, COUNT(*) AS n").
		Where("user_id = ?", userID).
		Group("mistake_type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, b := range rows {
		out[b.MistakeType] = b.N
	}
	return out, nil
}
