package difficulty

import (
	"encoding/json"
	"fmt"
)

type MasteryRatingMap struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Params struct {
	BaselineRating   float64          `json:"baseline_rating"`
	KFactor          float64          `json:"k_factor"`
	Scale            float64          `json:"scale"`
	MasteryRatingMap MasteryRatingMap `json:"mastery_rating_map"`
}

func ParseParams(raw []byte) (Params, error) {
	var p Params
	if err := json.Unmarshal(raw, &p); err != nil {
		return Params{}, fmt.Errorf("difficulty: parse params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func (p Params) Validate() error {
	if p.KFactor <= 0 {
		return fmt.Errorf("difficulty: k_factor must be positive, got %v", p.KFactor)
	}
	if p.Scale <= 0 {
		return fmt.Errorf("difficulty: scale must be positive, got %v", p.Scale)
	}
	if p.MasteryRatingMap.Min >= p.MasteryRatingMap.Max {
		return fmt.Errorf("difficulty: mastery_rating_map min %v >= max %v", p.MasteryRatingMap.Min, p.MasteryRatingMap.Max)
	}
	return nil
}
