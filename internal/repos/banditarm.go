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

type BanditArmRepo interface {
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.BanditArm, error)
	GetOrInit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, themeID uuid.UUID) (*types.BanditArm, error)
	RecordSelection(ctx context.Context, tx *gorm.DB, userID uuid.UUID, themeID uuid.UUID, at time.Time) error
	// RecordReward bumps alpha on reward, beta otherwise. Increments are
	// commutative so concurrent rewards for different attempts never lose
	// updates.
	RecordReward(ctx context.Context, tx *gorm.DB, userID uuid.UUID, themeID uuid.UUID, rewarded bool) error
}

type banditArmRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBanditArmRepo(db *gorm.DB, baseLog *logger.Logger) BanditArmRepo {
	return &banditArmRepo{
		db:  db,
		log: baseLog.With("repo", "BanditArmRepo"),
	}
}

func (r *banditArmRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.BanditArm, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.BanditArm
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

func (r *banditArmRepo) GetOrInit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, themeID uuid.UUID) (*types.BanditArm, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || themeID == uuid.Nil {
		return nil, nil
	}
	arm := &types.BanditArm{
		ID:      uuid.New(),
		UserID:  userID,
		ThemeID: themeID,
		Alpha:   1,
		Beta:    1,
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "theme_id"}},
			DoNothing: true,
		}).
		Create(arm).Error; err != nil {
		return nil, err
	}
	var row types.BanditArm
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND theme_id = ?", userID, themeID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *banditArmRepo) RecordSelection(ctx context.Context, tx *gorm.DB, userID uuid.UUID, themeID uuid.UUID, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || themeID == uuid.Nil {
		return nil
	}
	if _, err := r.GetOrInit(ctx, transaction, userID, themeID); err != nil {
		return err
	}
	return transaction.WithContext(ctx).
		Model(&types.BanditArm{}).
		Where("user_id = ? AND theme_id = ?", userID, themeID).
		Updates(map[string]interface{}{
			"pulls":            gorm.Expr("pulls + 1"),
			"last_selected_at": at,
			"updated_at":       time.Now(),
		}).Error
}

func (r *banditArmRepo) RecordReward(ctx context.Context, tx *gorm.DB, userID uuid.UUID, themeID uuid.UUID, rewarded bool) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || themeID == uuid.Nil {
		return nil
	}
	if _, err := r.GetOrInit(ctx, transaction, userID, themeID); err != nil {
		return err
	}
	col := "beta"
	if rewarded {
		col = "alpha"
	}
	return transaction.WithContext(ctx).
		Model(&types.BanditArm{}).
		Where("user_id = ? AND theme_id = ?", userID, themeID).
		Updates(map[string]interface{}{
			col:          gorm.Expr(col + " + 1"),
			"updated_at": time.Now(),
		}).Error
}
