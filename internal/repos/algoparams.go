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

type AlgoParamsRepo interface {
	Create(ctx context.Context, tx *gorm.DB, p *types.AlgoParams) (*types.AlgoParams, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AlgoParams, error)
	GetActiveForVersion(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) (*types.AlgoParams, error)
	ListByVersion(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) ([]*types.AlgoParams, error)
	ActivateExclusive(ctx context.Context, tx *gorm.DB, paramsID uuid.UUID) (*types.AlgoParams, error)
}

type algoParamsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAlgoParamsRepo(db *gorm.DB, baseLog *logger.Logger) AlgoParamsRepo {
	return &algoParamsRepo{
		db:  db,
		log: baseLog.With("repo", "AlgoParamsRepo"),
	}
}

func (r *algoParamsRepo) Create(ctx context.Context, tx *gorm.DB, p *types.AlgoParams) (*types.AlgoParams, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if p == nil || p.AlgoVersionID == uuid.Nil {
		return nil, nil
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (r *algoParamsRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AlgoParams, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.AlgoParams
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
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

func (r *algoParamsRepo) GetActiveForVersion(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) (*types.AlgoParams, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if versionID == uuid.Nil {
		return nil, nil
	}
	var row types.AlgoParams
	err := transaction.WithContext(ctx).
		Where("algo_version_id = ? AND is_active = ?", versionID, true).
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

func (r *algoParamsRepo) ListByVersion(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) ([]*types.AlgoParams, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AlgoParams
	if versionID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("algo_version_id = ?", versionID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ActivateExclusive marks the target parameter set active and deactivates its
// siblings under the same version, in one transaction. Returns nil when the
// target does not exist.
func (r *algoParamsRepo) ActivateExclusive(ctx context.Context, tx *gorm.DB, paramsID uuid.UUID) (*types.AlgoParams, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if paramsID == uuid.Nil {
		return nil, nil
	}
	var activated *types.AlgoParams
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var target types.AlgoParams
		q := txx.Where("id = ?", paramsID).Limit(1)
		if txx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.Find(&target).Error; err != nil {
			return err
		}
		if target.ID == uuid.Nil {
			return nil
		}
		now := time.Now()
		if err := txx.Model(&types.AlgoParams{}).
			Where("algo_version_id = ? AND is_active = ? AND id <> ?", target.AlgoVersionID, true, target.ID).
			Updates(map[string]interface{}{
				"is_active":  false,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}
		if err := txx.Model(&types.AlgoParams{}).
			Where("id = ?", target.ID).
			Updates(map[string]interface{}{
				"is_active":  true,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}
		target.IsActive = true
		target.UpdatedAt = now
		activated = &target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return activated, nil
}
