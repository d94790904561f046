package types

import (
	"time"

	"github.com/google/uuid"
)

type MasteryState struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_mastery_user_theme,unique" json:"user_id"`
	ThemeID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_mastery_user_theme,unique" json:"theme_id"`
	AttemptsTotal int        `gorm:"column:attempts_total;not null;default:0" json:"attempts_total"`
	CorrectTotal  int        `gorm:"column:correct_total;not null;default:0" json:"correct_total"`
	MasteryScore  float64    `gorm:"column:mastery_score;not null" json:"mastery_score"`
	LastAttemptAt *time.Time `gorm:"column:last_attempt_at" json:"last_attempt_at,omitempty"`
	AlgoVersionID uuid.UUID  `gorm:"type:uuid;column:algo_version_id" json:"algo_version_id"`
	ParamsID      uuid.UUID  `gorm:"type:uuid;column:params_id" json:"params_id"`
	RunID         uuid.UUID  `gorm:"type:uuid;column:run_id" json:"run_id"`
	CreatedAt     time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (MasteryState) TableName() string { return "mastery_state" }
