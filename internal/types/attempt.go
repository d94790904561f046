package types

import (
	"time"

	"github.com/google/uuid"
)

// Attempt is the graded attempt-outcome fact the engine consumes. The
// session/telemetry subsystem writes the raw event; the engine persists its
// own copy so anti-repeat windows and batch refits can be computed without
// reaching back into foreign tables.
type Attempt struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID  `gorm:"type:uuid;not null;index:idx_attempt_user_occurred" json:"user_id"`
	QuestionID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"question_id"`
	ThemeID            uuid.UUID  `gorm:"type:uuid;not null;index" json:"theme_id"`
	SessionID          *uuid.UUID `gorm:"type:uuid;index" json:"session_id,omitempty"`
	IsCorrect          bool       `gorm:"column:is_correct;not null" json:"is_correct"`
	ResponseTimeSec    float64    `gorm:"column:response_time_seconds;not null" json:"response_time_seconds"`
	ChangedAnswerCount int        `gorm:"column:changed_answer_count;not null;default:0" json:"changed_answer_count"`
	BlurCount          int        `gorm:"column:blur_count;not null;default:0" json:"blur_count"`
	RemainingTimeSec   float64    `gorm:"column:remaining_time_seconds_at_answer;not null" json:"remaining_time_seconds_at_answer"`
	OccurredAt         time.Time  `gorm:"column:occurred_at;not null;index:idx_attempt_user_occurred" json:"occurred_at"`
	CreatedAt          time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Attempt) TableName() string { return "attempt" }
