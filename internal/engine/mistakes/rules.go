package mistakes

import (
	"github.com/studyforge/learning-engine/internal/types"
)

// Features are the behavioral signals captured with a graded attempt.
type Features struct {
	IsCorrect          bool    `json:"is_correct"`
	TimeSpentSec       float64 `json:"time_spent_seconds"`
	ChangedAnswerCount int     `json:"changed_answer_count"`
	BlurCount          int     `json:"blur_count"`
	RemainingTimeSec   float64 `json:"remaining_time_seconds"`
}

// FeaturesFromAttempt projects the persisted attempt fact onto the classifier
// feature set.
func FeaturesFromAttempt(a *types.Attempt) Features {
	return Features{
		IsCorrect:          a.IsCorrect,
		TimeSpentSec:       a.ResponseTimeSec,
		ChangedAnswerCount: a.ChangedAnswerCount,
		BlurCount:          a.BlurCount,
		RemainingTimeSec:   a.RemainingTimeSec,
	}
}

// classifyRules is the v0 cascade. Rules are evaluated in strict precedence
// order and the first match wins; KNOWLEDGE_GAP is the residual category.
// Only called for incorrect attempts.
func classifyRules(f Features, p Params) (mistakeType string, rule string) {
	switch {
	case f.ChangedAnswerCount >= 1:
		return types.MistakeChangedAnswer, "changed_answer_count >= 1"
	case f.RemainingTimeSec <= p.TimePressureThresholdSec:
		return types.MistakeTimePressure, "remaining_time <= time_pressure_threshold"
	case f.TimeSpentSec <= p.FastWrongThresholdSec:
		return types.MistakeFastWrong, "time_spent <= fast_wrong_threshold"
	case f.BlurCount >= p.BlurThreshold:
		return types.MistakeDistracted, "blur_count >= blur_threshold"
	case f.TimeSpentSec >= p.SlowWrongThresholdSec:
		return types.MistakeSlowWrong, "time_spent >= slow_wrong_threshold"
	default:
		return types.MistakeKnowledgeGap, "no rule matched"
	}
}
