package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AlgoRun is the provenance record for one algorithm execution. Rows are
// append-mostly: the only mutation after insert is the terminal status
// transition.
type AlgoRun struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AlgoVersionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"algo_version_id"`
	ParamsID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"params_id"`
	UserID        *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	SessionID     *uuid.UUID     `gorm:"type:uuid;index" json:"session_id,omitempty"`
	Trigger       RunTrigger     `gorm:"column:trigger;type:varchar(16);not null" json:"trigger"`
	Status        string         `gorm:"column:status;type:varchar(16);not null;index" json:"status"` // RUNNING|SUCCESS|FAILED
	StartedAt     time.Time      `gorm:"column:started_at;not null;index" json:"started_at"`
	CompletedAt   *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	InputSummary  datatypes.JSON `gorm:"type:jsonb;column:input_summary" json:"input_summary"`
	OutputSummary datatypes.JSON `gorm:"type:jsonb;column:output_summary" json:"output_summary"`
	ErrorMessage  string         `gorm:"column:error_message" json:"error_message"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (AlgoRun) TableName() string { return "algo_run" }

func (r *AlgoRun) Terminal() bool {
	return r.Status == RunStatusSuccess || r.Status == RunStatusFailed
}
