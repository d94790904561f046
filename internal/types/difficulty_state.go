package types

import (
	"time"

	"github.com/google/uuid"
)

// DifficultyState carries the Elo-lite rating for one question. Cohort is ""
// for the global rating; per-cohort rows share the question id.
type DifficultyState struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionID     uuid.UUID `gorm:"type:uuid;not null;index:idx_difficulty_question_cohort,unique" json:"question_id"`
	Cohort         string    `gorm:"column:cohort;type:varchar(64);not null;default:'';index:idx_difficulty_question_cohort,unique" json:"cohort"`
	Rating         float64   `gorm:"column:rating;not null" json:"rating"`
	Attempts       int       `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Correct        int       `gorm:"column:correct;not null;default:0" json:"correct"`
	PCorrectCached float64   `gorm:"column:p_correct_cached;not null" json:"p_correct_cached"`
	AlgoVersionID  uuid.UUID `gorm:"type:uuid;column:algo_version_id" json:"algo_version_id"`
	ParamsID       uuid.UUID `gorm:"type:uuid;column:params_id" json:"params_id"`
	RunID          uuid.UUID `gorm:"type:uuid;column:run_id" json:"run_id"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (DifficultyState) TableName() string { return "difficulty_state" }
