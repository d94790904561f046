package adaptive

import (
	"encoding/json"
	"fmt"
	"sort"
)

type ThemeMix struct {
	Weak   float64 `json:"weak"`
	Medium float64 `json:"medium"`
	Mixed  float64 `json:"mixed"`
}

type RatingRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type FitWeights struct {
	MasteryInverse     float64 `json:"mastery_inverse"`
	DifficultyDistance float64 `json:"difficulty_distance"`
	Freshness          float64 `json:"freshness"`
}

type Params struct {
	AntiRepeatDays    int                    `json:"anti_repeat_days"`
	ThemeMix          ThemeMix               `json:"theme_mix"`
	DifficultyBuckets map[string]RatingRange `json:"difficulty_buckets"`
	BucketLimits      map[string]int         `json:"bucket_limits"`
	FitWeights        FitWeights             `json:"fit_weights"`
	WeakBandUpper     float64                `json:"weak_band_upper"`
	MediumBandUpper   float64                `json:"medium_band_upper"`
}

func ParseParams(raw []byte) (Params, error) {
	var p Params
	if err := json.Unmarshal(raw, &p); err != nil {
		return Params{}, fmt.Errorf("adaptive: parse params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func (p Params) Validate() error {
	if p.AntiRepeatDays < 0 {
		return fmt.Errorf("adaptive: anti_repeat_days must be >= 0, got %d", p.AntiRepeatDays)
	}
	mixTotal := p.ThemeMix.Weak + p.ThemeMix.Medium + p.ThemeMix.Mixed
	if mixTotal <= 0 {
		return fmt.Errorf("adaptive: theme_mix must have positive total, got %v", mixTotal)
	}
	if len(p.DifficultyBuckets) == 0 {
		return fmt.Errorf("adaptive: at least one difficulty bucket required")
	}
	for name, r := range p.DifficultyBuckets {
		if r.Min >= r.Max {
			return fmt.Errorf("adaptive: bucket %q min %v >= max %v", name, r.Min, r.Max)
		}
	}
	// Overlapping ranges would make bucket assignment ambiguous.
	names := p.bucketNames()
	for i := 1; i < len(names); i++ {
		prev, cur := p.DifficultyBuckets[names[i-1]], p.DifficultyBuckets[names[i]]
		if cur.Min < prev.Max {
			return fmt.Errorf("adaptive: buckets %q and %q overlap", names[i-1], names[i])
		}
	}
	if p.WeakBandUpper <= 0 || p.MediumBandUpper <= p.WeakBandUpper {
		return fmt.Errorf("adaptive: band uppers must satisfy 0 < weak (%v) < medium (%v)", p.WeakBandUpper, p.MediumBandUpper)
	}
	return nil
}

// bucketNames orders the configured buckets by ascending range start, with
// the name as a stable tie-break.
func (p Params) bucketNames() []string {
	names := make([]string, 0, len(p.DifficultyBuckets))
	for name := range p.DifficultyBuckets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := p.DifficultyBuckets[names[i]], p.DifficultyBuckets[names[j]]
		if a.Min != b.Min {
			return a.Min < b.Min
		}
		return names[i] < names[j]
	})
	return names
}

// bucketFor names the difficulty bucket covering a rating, or "" when the
// rating falls outside every configured range.
func (p Params) bucketFor(rating float64) string {
	for _, name := range p.bucketNames() {
		r := p.DifficultyBuckets[name]
		if rating >= r.Min && rating < r.Max {
			return name
		}
	}
	return ""
}

// tierFor maps a theme mastery score to its weakness tier.
func (p Params) tierFor(mastery float64) string {
	switch {
	case mastery <= p.WeakBandUpper:
		return "weak"
	case mastery <= p.MediumBandUpper:
		return "medium"
	default:
		return "mixed"
	}
}
