package revision

import (
	"encoding/json"
	"fmt"
	"sort"
)

type Band struct {
	Name       string  `json:"name"`
	UpperBound float64 `json:"upper_bound"`
}

type CountRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type Weights struct {
	Mastery      float64 `json:"mastery"`
	Recency      float64 `json:"recency"`
	LowDataBonus float64 `json:"low_data_bonus"`
}

type Params struct {
	MinAttempts       int                   `json:"min_attempts"`
	Bands             []Band                `json:"bands"`
	SpacingDays       map[string]int        `json:"spacing_days"`
	Weights           Weights               `json:"weights"`
	RecommendedCounts map[string]CountRange `json:"recommended_counts"`
}

func ParseParams(raw []byte) (Params, error) {
	var p Params
	if err := json.Unmarshal(raw, &p); err != nil {
		return Params{}, fmt.Errorf("revision: parse params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func (p Params) Validate() error {
	if p.MinAttempts < 1 {
		return fmt.Errorf("revision: min_attempts must be >= 1, got %d", p.MinAttempts)
	}
	if len(p.Bands) == 0 {
		return fmt.Errorf("revision: at least one band required")
	}
	if !sort.SliceIsSorted(p.Bands, func(i, j int) bool {
		return p.Bands[i].UpperBound < p.Bands[j].UpperBound
	}) {
		return fmt.Errorf("revision: bands must be ordered by ascending upper_bound")
	}
	for i := 1; i < len(p.Bands); i++ {
		if p.Bands[i].UpperBound == p.Bands[i-1].UpperBound {
			return fmt.Errorf("revision: bands %q and %q share upper_bound %v", p.Bands[i-1].Name, p.Bands[i].Name, p.Bands[i].UpperBound)
		}
	}
	for _, b := range p.Bands {
		if _, ok := p.SpacingDays[b.Name]; !ok {
			return fmt.Errorf("revision: band %q has no spacing_days entry", b.Name)
		}
		cr, ok := p.RecommendedCounts[b.Name]
		if !ok {
			return fmt.Errorf("revision: band %q has no recommended_counts entry", b.Name)
		}
		if cr.Min > cr.Max {
			return fmt.Errorf("revision: band %q recommended_counts min %d > max %d", b.Name, cr.Min, cr.Max)
		}
	}
	return nil
}

// BandFor classifies a mastery score into the first band whose upper bound
// covers it. Scores above every bound land in the last band.
func (p Params) BandFor(mastery float64) Band {
	for _, b := range p.Bands {
		if mastery <= b.UpperBound {
			return b
		}
	}
	return p.Bands[len(p.Bands)-1]
}
