package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/types"
)

type AlgoRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, run *types.AlgoRun) (*types.AlgoRun, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AlgoRun, error)
	// MarkTerminal transitions a RUNNING row to the given terminal status.
	// Returns false without error when the row is already terminal.
	MarkTerminal(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string, outputSummary datatypes.JSON, errorMessage string) (bool, error)
	ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.AlgoRun, error)
	ListByVersion(ctx context.Context, tx *gorm.DB, versionID uuid.UUID, limit int) ([]*types.AlgoRun, error)
}

type algoRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAlgoRunRepo(db *gorm.DB, baseLog *logger.Logger) AlgoRunRepo {
	return &algoRunRepo{
		db:  db,
		log: baseLog.With("repo", "AlgoRunRepo"),
	}
}

func (r *algoRunRepo) Create(ctx context.Context, tx *gorm.DB, run *types.AlgoRun) (*types.AlgoRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if run == nil {
		return nil, nil
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = types.RunStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if err := transaction.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *algoRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AlgoRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.AlgoRun
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

func (r *algoRunRepo) MarkTerminal(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string, outputSummary datatypes.JSON, errorMessage string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	now := time.Now()
	updates := map[string]interface{}{
		"status":       status,
		"completed_at": now,
		"updated_at":   now,
	}
	if outputSummary != nil {
		updates["output_summary"] = outputSummary
	}
	if errorMessage != "" {
		updates["error_message"] = errorMessage
	}
	// The status guard is what makes the terminal transition idempotent under
	// retried callers: a second call matches zero rows.
	res := transaction.WithContext(ctx).
		Model(&types.AlgoRun{}).
		Where("id = ? AND status = ?", id, types.RunStatusRunning).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *algoRunRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.AlgoRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.AlgoRun
	if err := transaction.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *algoRunRepo) ListByVersion(ctx context.Context, tx *gorm.DB, versionID uuid.UUID, limit int) ([]*types.AlgoRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AlgoRun
	if versionID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 50
	}
	if err := transaction.WithContext(ctx).
		Where("algo_version_id = ?", versionID).
		Order("started_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
