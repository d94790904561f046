package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Revision entry lifecycle states.
const (
	RevisionDue     = "DUE"
	RevisionDone    = "DONE"
	RevisionSnoozed = "SNOOZED"
	RevisionSkipped = "SKIPPED"
)

// RevisionEntry is one row of the spaced-repetition queue. Regeneration
// upserts on (user_id, theme_id, due_date); superseded rows keep their status
// history instead of being deleted.
type RevisionEntry struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index:idx_revision_user_theme_due,unique" json:"user_id"`
	ThemeID          uuid.UUID      `gorm:"type:uuid;not null;index:idx_revision_user_theme_due,unique" json:"theme_id"`
	DueDate          time.Time      `gorm:"column:due_date;type:date;not null;index:idx_revision_user_theme_due,unique" json:"due_date"`
	PriorityScore    float64        `gorm:"column:priority_score;not null" json:"priority_score"`
	RecommendedCount int            `gorm:"column:recommended_count;not null" json:"recommended_count"`
	Status           string         `gorm:"column:status;type:varchar(16);not null;index" json:"status"` // DUE|DONE|SNOOZED|SKIPPED
	Reason           datatypes.JSON `gorm:"type:jsonb;column:reason" json:"reason"`
	AlgoVersionID    uuid.UUID      `gorm:"type:uuid;column:algo_version_id" json:"algo_version_id"`
	ParamsID         uuid.UUID      `gorm:"type:uuid;column:params_id" json:"params_id"`
	RunID            uuid.UUID      `gorm:"type:uuid;column:run_id" json:"run_id"`
	CreatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (RevisionEntry) TableName() string { return "revision_queue_entry" }
