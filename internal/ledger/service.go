package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/repos"
	"github.com/studyforge/learning-engine/internal/types"
)

// Service is the audit boundary around algorithm executions. Every invocation
// that mutates persisted state runs under exactly one run record; results can
// always be traced back to the version, parameter set and execution that
// produced them.
type Service interface {
	StartRun(ctx context.Context, in StartRunInput) (*RunContext, error)
	GetByID(ctx context.Context, runID uuid.UUID) (*types.AlgoRun, error)
	ListRecent(ctx context.Context, limit int) ([]*types.AlgoRun, error)
}

type StartRunInput struct {
	VersionID    uuid.UUID
	ParamsID     uuid.UUID
	UserID       *uuid.UUID
	SessionID    *uuid.UUID
	Trigger      types.RunTrigger
	InputSummary map[string]interface{}
}

type service struct {
	db      *gorm.DB
	log     *logger.Logger
	runRepo repos.AlgoRunRepo
}

func NewService(db *gorm.DB, baseLog *logger.Logger, runRepo repos.AlgoRunRepo) Service {
	return &service{
		db:      db,
		log:     baseLog.With("service", "RunLedger"),
		runRepo: runRepo,
	}
}

func (s *service) StartRun(ctx context.Context, in StartRunInput) (*RunContext, error) {
	if in.VersionID == uuid.Nil || in.ParamsID == uuid.Nil {
		return nil, fmt.Errorf("ledger: start run requires version and params ids")
	}
	if !in.Trigger.Valid() {
		return nil, fmt.Errorf("ledger: invalid trigger %q", in.Trigger)
	}
	var inputSummary datatypes.JSON
	if in.InputSummary != nil {
		raw, err := json.Marshal(in.InputSummary)
		if err != nil {
			return nil, fmt.Errorf("ledger: encode input summary: %w", err)
		}
		inputSummary = datatypes.JSON(raw)
	}
	run, err := s.runRepo.Create(ctx, nil, &types.AlgoRun{
		AlgoVersionID: in.VersionID,
		ParamsID:      in.ParamsID,
		UserID:        in.UserID,
		SessionID:     in.SessionID,
		Trigger:       in.Trigger,
		Status:        types.RunStatusRunning,
		InputSummary:  inputSummary,
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: start run: %w", err)
	}
	log := s.log.With("run_id", run.ID, "algo_version_id", run.AlgoVersionID, "trigger", run.Trigger)
	log.Debug("Run started")
	return &RunContext{
		run:  run,
		repo: s.runRepo,
		log:  log,
	}, nil
}

func (s *service) GetByID(ctx context.Context, runID uuid.UUID) (*types.AlgoRun, error) {
	return s.runRepo.GetByID(ctx, nil, runID)
}

func (s *service) ListRecent(ctx context.Context, limit int) ([]*types.AlgoRun, error) {
	return s.runRepo.ListRecent(ctx, nil, limit)
}
