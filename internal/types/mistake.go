package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Mistake categories for incorrect attempts.
const (
	MistakeChangedAnswer = "CHANGED_ANSWER_WRONG"
	MistakeTimePressure  = "TIME_PRESSURE_WRONG"
	MistakeFastWrong     = "FAST_WRONG"
	MistakeDistracted    = "DISTRACTED_WRONG"
	MistakeSlowWrong     = "SLOW_WRONG"
	MistakeKnowledgeGap  = "KNOWLEDGE_GAP"
)

// Classification sources.
const (
	MistakeSourceRuleV0  = "RULE_V0"
	MistakeSourceModelV1 = "MODEL_V1"
)

// MistakeClassification is written once per graded wrong attempt and never
// mutated afterwards.
type MistakeClassification struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AttemptID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"attempt_id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	MistakeType   string         `gorm:"column:mistake_type;type:varchar(32);not null;index" json:"mistake_type"`
	Severity      int            `gorm:"column:severity;not null" json:"severity"`
	Confidence    float64        `gorm:"column:confidence;not null" json:"confidence"`
	Evidence      datatypes.JSON `gorm:"type:jsonb;column:evidence" json:"evidence"`
	Source        string         `gorm:"column:source;type:varchar(16);not null" json:"source"` // RULE_V0|MODEL_V1
	AlgoVersionID uuid.UUID      `gorm:"type:uuid;column:algo_version_id" json:"algo_version_id"`
	ParamsID      uuid.UUID      `gorm:"type:uuid;column:params_id" json:"params_id"`
	RunID         uuid.UUID      `gorm:"type:uuid;column:run_id" json:"run_id"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (MistakeClassification) TableName() string { return "mistake_classification" }
