package mistakes

import (
	"encoding/json"
	"fmt"

	"github.com/studyforge/learning-engine/internal/types"
)

// ModelParams configures the calibrated v1 classifier. Weights is a per-type
// linear model over the attempt features; Temperature scales the softmax used
// for calibration. Absent model params mean the rule cascade runs alone.
type ModelParams struct {
	Weights       map[string]map[string]float64 `json:"weights"`
	Bias          map[string]float64            `json:"bias"`
	Temperature   float64                       `json:"temperature"`
	MinConfidence float64                       `json:"min_confidence"`
}

type Params struct {
	TimePressureThresholdSec float64        `json:"time_pressure_threshold_seconds"`
	FastWrongThresholdSec    float64        `json:"fast_wrong_threshold_seconds"`
	SlowWrongThresholdSec    float64        `json:"slow_wrong_threshold_seconds"`
	BlurThreshold            int            `json:"blur_threshold"`
	Severity                 map[string]int `json:"severity"`
	Model                    *ModelParams   `json:"model,omitempty"`
}

func ParseParams(raw []byte) (Params, error) {
	var p Params
	if err := json.Unmarshal(raw, &p); err != nil {
		return Params{}, fmt.Errorf("mistakes: parse params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func (p Params) Validate() error {
	if p.TimePressureThresholdSec <= 0 {
		return fmt.Errorf("mistakes: time_pressure_threshold_seconds must be positive, got %v", p.TimePressureThresholdSec)
	}
	if p.FastWrongThresholdSec <= 0 {
		return fmt.Errorf("mistakes: fast_wrong_threshold_seconds must be positive, got %v", p.FastWrongThresholdSec)
	}
	if p.SlowWrongThresholdSec <= p.FastWrongThresholdSec {
		return fmt.Errorf("mistakes: slow threshold %v must exceed fast threshold %v", p.SlowWrongThresholdSec, p.FastWrongThresholdSec)
	}
	if p.BlurThreshold < 1 {
		return fmt.Errorf("mistakes: blur_threshold must be >= 1, got %d", p.BlurThreshold)
	}
	for _, mt := range allMistakeTypes {
		if _, ok := p.Severity[mt]; !ok {
			return fmt.Errorf("mistakes: severity table missing entry for %s", mt)
		}
	}
	if p.Model != nil {
		if p.Model.Temperature <= 0 {
			return fmt.Errorf("mistakes: model temperature must be positive, got %v", p.Model.Temperature)
		}
		if p.Model.MinConfidence <= 0 || p.Model.MinConfidence >= 1 {
			return fmt.Errorf("mistakes: model min_confidence must be in (0,1), got %v", p.Model.MinConfidence)
		}
		if len(p.Model.Weights) == 0 {
			return fmt.Errorf("mistakes: model weights must not be empty")
		}
	}
	return nil
}

// SeverityFor looks up the configured severity, defaulting to the
// knowledge-gap severity when a type has no entry.
func (p Params) SeverityFor(mistakeType string) int {
	if s, ok := p.Severity[mistakeType]; ok {
		return s
	}
	return p.Severity[types.MistakeKnowledgeGap]
}

var allMistakeTypes = []string{
	types.MistakeChangedAnswer,
	types.MistakeTimePressure,
	types.MistakeFastWrong,
	types.MistakeDistracted,
	types.MistakeSlowWrong,
	types.MistakeKnowledgeGap,
}
