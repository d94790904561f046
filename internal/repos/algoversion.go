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

type AlgoVersionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, v *types.AlgoVersion) (*types.AlgoVersion, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AlgoVersion, error)
	GetByKeyAndVersion(ctx context.Context, tx *gorm.DB, key types.AlgoKey, version string) (*types.AlgoVersion, error)
	GetActive(ctx context.Context, tx *gorm.DB, key types.AlgoKey) (*types.AlgoVersion, error)
	ListByKey(ctx context.Context, tx *gorm.DB, key types.AlgoKey) ([]*types.AlgoVersion, error)
	CountByKey(ctx context.Context, tx *gorm.DB, key types.AlgoKey) (int64, error)
	ActivateExclusive(ctx context.Context, tx *gorm.DB, key types.AlgoKey, version string) (*types.AlgoVersion, error)
	Deprecate(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type algoVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAlgoVersionRepo(db *gorm.DB, baseLog *logger.Logger) AlgoVersionRepo {
	return &algoVersionRepo{
		db:  db,
		log: baseLog.With("repo", "AlgoVersionRepo"),
	}
}

func (r *algoVersionRepo) Create(ctx context.Context, tx *gorm.DB, v *types.AlgoVersion) (*types.AlgoVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if v == nil {
		return nil, nil
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.Status == "" {
		v.Status = types.VersionExperimental
	}
	if err := transaction.WithContext(ctx).Create(v).Error; err != nil {
		return nil, err
	}
	return v, nil
}

func (r *algoVersionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AlgoVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.AlgoVersion
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

func (r *algoVersionRepo) GetByKeyAndVersion(ctx context.Context, tx *gorm.DB, key types.AlgoKey, version string) (*types.AlgoVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if key == "" || version == "" {
		return nil, nil
	}
	var row types.AlgoVersion
	err := transaction.WithContext(ctx).
		Where("algo_key = ? AND version = ?", key, version).
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

func (r *algoVersionRepo) GetActive(ctx context.Context, tx *gorm.DB, key types.AlgoKey) (*types.AlgoVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if key == "" {
		return nil, nil
	}
	var row types.AlgoVersion
	err := transaction.WithContext(ctx).
		Where("algo_key = ? AND status = ?", key, types.VersionActive).
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

func (r *algoVersionRepo) ListByKey(ctx context.Context, tx *gorm.DB, key types.AlgoKey) ([]*types.AlgoVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AlgoVersion
	if key == "" {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("algo_key = ?", key).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *algoVersionRepo) CountByKey(ctx context.Context, tx *gorm.DB, key types.AlgoKey) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(ctx).
		Model(&types.AlgoVersion{}).
		Where("algo_key = ?", key).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// ActivateExclusive flips the target version to ACTIVE and every other ACTIVE
// sibling of the same key back to EXPERIMENTAL, in one transaction. The key's
// rows are locked for the duration so concurrent activations serialize.
// Returns nil when the target version does not exist; nothing is mutated in
// that case.
func (r *algoVersionRepo) ActivateExclusive(ctx context.Context, tx *gorm.DB, key types.AlgoKey, version string) (*types.AlgoVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if key == "" || version == "" {
		return nil, nil
	}
	var activated *types.AlgoVersion
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var target types.AlgoVersion
		q := txx.Where("algo_key = ? AND version = ?", key, version).Limit(1)
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
		if err := txx.Model(&types.AlgoVersion{}).
			Where("algo_key = ? AND status = ? AND id <> ?", key, types.VersionActive, target.ID).
			Updates(map[string]interface{}{
				"status":     types.VersionExperimental,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}
		if err := txx.Model(&types.AlgoVersion{}).
			Where("id = ?", target.ID).
			Updates(map[string]interface{}{
				"status":     types.VersionActive,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}
		target.Status = types.VersionActive
		target.UpdatedAt = now
		activated = &target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return activated, nil
}

func (r *algoVersionRepo) Deprecate(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.AlgoVersion{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     types.VersionDeprecated,
			"updated_at": time.Now(),
		}).Error
}
