package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/types"
)

type AttemptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, a *types.Attempt) (*types.Attempt, error)
	// RecentQuestionIDs returns the distinct question ids the user answered
	// since the cutoff, for anti-repeat filtering.
	RecentQuestionIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]uuid.UUID, error)
	// OutcomesByTheme returns the chronological right/wrong sequence for one
	// (user, theme) pair, for offline parameter fitting.
	OutcomesByTheme(ctx context.Context, tx *gorm.DB, userID uuid.UUID, themeID uuid.UUID) ([]bool, error)
	ListUserIDsSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]uuid.UUID, error)
	ListThemeIDsSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]uuid.UUID, error)
	FirstOutcomeAfter(ctx context.Context, tx *gorm.DB, userID uuid.UUID, questionID uuid.UUID, after time.Time) (*types.Attempt, error)
}

type attemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttemptRepo(db *gorm.DB, baseLog *logger.Logger) AttemptRepo {
	return &attemptRepo{
		db:  db,
		log: baseLog.With("repo", "AttemptRepo"),
	}
}

func (r *attemptRepo) Create(ctx context.Context, tx *gorm.DB, a *types.Attempt) (*types.Attempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if a == nil || a.UserID == uuid.Nil || a.QuestionID == uuid.Nil {
		return nil, nil
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.OccurredAt.IsZero() {
		a.OccurredAt = time.Now()
	}
	if err := transaction.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (r *attemptRepo) RecentQuestionIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []uuid.UUID
	if userID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Attempt{}).
		Distinct("question_id").
		Where("user_id = ? AND occurred_at >= ?", userID, since).
		Pluck("question_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *attemptRepo) OutcomesByTheme(ctx context.Context, tx *gorm.DB, userID uuid.UUID, themeID uuid.UUID) ([]bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []bool
	if userID == uuid.Nil || themeID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Attempt{}).
		Where("user_id = ? AND theme_id = ?", userID, themeID).
		Order("occurred_at ASC").
		Pluck("is_correct", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *attemptRepo) ListUserIDsSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.Attempt{}).
		Distinct("user_id").
		Where("occurred_at >= ?", since).
		Pluck("user_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *attemptRepo) ListThemeIDsSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.Attempt{}).
		Distinct("theme_id").
		Where("occurred_at >= ?", since).
		Pluck("theme_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *attemptRepo) FirstOutcomeAfter(ctx context.Context, tx *gorm.DB, userID uuid.UUID, questionID uuid.UUID, after time.Time) (*types.Attempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || questionID == uuid.Nil {
		return nil, nil
	}
	var row types.Attempt
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND question_id = ? AND occurred_at > ?", userID, questionID, after).
		Order("occurred_at ASC").
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
