package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/repos"
	"github.com/studyforge/learning-engine/internal/types"
)

// RunContext is the handle an algorithm execution carries while it runs. It
// is the only sanctioned way to terminate the run record. Both terminal
// helpers are idempotent: a second call on an already-terminal run logs a
// warning and returns nil, so retried callers stay harmless.
type RunContext struct {
	run  *types.AlgoRun
	repo repos.AlgoRunRepo
	log  *logger.Logger
}

func (rc *RunContext) RunID() uuid.UUID {
	return rc.run.ID
}

func (rc *RunContext) VersionID() uuid.UUID {
	return rc.run.AlgoVersionID
}

func (rc *RunContext) ParamsID() uuid.UUID {
	return rc.run.ParamsID
}

func (rc *RunContext) Log() *logger.Logger {
	return rc.log
}

func (rc *RunContext) Success(ctx context.Context, outputSummary map[string]interface{}) error {
	var out datatypes.JSON
	if outputSummary != nil {
		raw, err := json.Marshal(outputSummary)
		if err != nil {
			return fmt.Errorf("ledger: encode output summary: %w", err)
		}
		out = datatypes.JSON(raw)
	}
	transitioned, err := rc.repo.MarkTerminal(ctx, nil, rc.run.ID, types.RunStatusSuccess, out, "")
	if err != nil {
		return fmt.Errorf("ledger: mark run success: %w", err)
	}
	if !transitioned {
		rc.log.Warn("Terminal transition on already-terminal run ignored", "target_status", types.RunStatusSuccess)
		return nil
	}
	rc.run.Status = types.RunStatusSuccess
	rc.log.Debug("Run succeeded")
	return nil
}

func (rc *RunContext) Fail(ctx context.Context, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	transitioned, err := rc.repo.MarkTerminal(ctx, nil, rc.run.ID, types.RunStatusFailed, nil, msg)
	if err != nil {
		return fmt.Errorf("ledger: mark run failed: %w", err)
	}
	if !transitioned {
		rc.log.Warn("Terminal transition on already-terminal run ignored", "target_status", types.RunStatusFailed)
		return nil
	}
	rc.run.Status = types.RunStatusFailed
	rc.log.Warn("Run failed", "error", msg)
	return nil
}
