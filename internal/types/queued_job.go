package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Queued job lifecycle states.
const (
	JobQueued  = "queued"
	JobRunning = "running"
	JobSuccess = "success"
	JobFailed  = "failed"
)

// Queued job types the worker dispatches on.
const (
	JobTypeRevisionGenerate = "revision_generate"
	JobTypeBKTFit           = "bkt_fit"
)

// QueuedJob is one on-demand batch recompute waiting for a worker. Failed
// jobs retry up to the worker's attempt budget; running jobs with a stale
// heartbeat are reclaimed.
type QueuedJob struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobType     string         `gorm:"column:job_type;type:varchar(64);not null;index" json:"job_type"`
	Payload     datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload"`
	Status      string         `gorm:"column:status;type:varchar(16);not null;default:'queued';index" json:"status"`
	Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError   string         `gorm:"column:last_error;type:text" json:"last_error,omitempty"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	LockedAt    *time.Time     `gorm:"column:locked_at" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time     `gorm:"column:heartbeat_at" json:"heartbeat_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (QueuedJob) TableName() string { return "queued_job" }
