package adaptive

import (
	"math"
	"math/rand"
	"sort"

	"github.com/google/uuid"
)

// Thompson-sampling variant of the selector. Each (user, theme) arm carries
// Beta(alpha, beta) reward counts; themes are ordered by a posterior draw
// instead of deterministic rank, then filled with the same constrained
// within-theme ranking as v0.

type armState struct {
	ThemeID uuid.UUID
	Alpha   float64
	Beta    float64
}

// sampleBeta draws from Beta(a, b) via two Gamma draws (Marsaglia-Tsang).
func sampleBeta(rng *rand.Rand, a, b float64) float64 {
	x := sampleGamma(rng, a)
	y := sampleGamma(rng, b)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}

func sampleGamma(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		// Boost trick: Gamma(a) = Gamma(a+1) * U^(1/a).
		u := rng.Float64()
		for u == 0 {
			u = rng.Float64()
		}
		return sampleGamma(rng, shape+1) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if u > 0 && math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// sampleThemeOrder returns theme ids ordered by a Thompson draw, highest
// sampled success probability first. Themes without an arm use the uniform
// Beta(1,1) prior.
func sampleThemeOrder(rng *rand.Rand, themeIDs []uuid.UUID, arms map[uuid.UUID]armState) []uuid.UUID {
	type draw struct {
		themeID uuid.UUID
		value   float64
	}
	draws := make([]draw, 0, len(themeIDs))
	for _, id := range themeIDs {
		a, b := 1.0, 1.0
		if arm, ok := arms[id]; ok {
			a, b = arm.Alpha, arm.Beta
		}
		draws = append(draws, draw{themeID: id, value: sampleBeta(rng, a, b)})
	}
	sort.Slice(draws, func(i, j int) bool {
		if draws[i].value != draws[j].value {
			return draws[i].value > draws[j].value
		}
		return draws[i].themeID.String() < draws[j].themeID.String()
	})
	out := make([]uuid.UUID, len(draws))
	for i, d := range draws {
		out[i] = d.themeID
	}
	return out
}

// rankThompson fills the selection theme by theme in sampled order. Within a
// theme the deterministic fit ranking and bucket limits still apply, so only
// the exploration order changes between v0 and v1.
func rankThompson(rng *rand.Rand, in rankInput, p Params, count int, arms map[uuid.UUID]armState) Selection {
	if count <= 0 {
		return Selection{Requested: count}
	}

	byTheme := map[uuid.UUID][]Candidate{}
	var themeIDs []uuid.UUID
	for _, c := range in.pool {
		if in.excludeQuestion[c.QuestionID] {
			continue
		}
		if p.bucketFor(c.Rating) == "" {
			continue
		}
		if _, seen := byTheme[c.ThemeID]; !seen {
			themeIDs = append(themeIDs, c.ThemeID)
		}
		byTheme[c.ThemeID] = append(byTheme[c.ThemeID], c)
	}
	order := sampleThemeOrder(rng, themeIDs, arms)

	var (
		picked      []uuid.UUID
		pickedSet   = map[uuid.UUID]bool{}
		bucketTaken = map[string]int{}
	)
	for len(picked) < count {
		progressed := false
		// Round-robin across themes in sampled order: one pick per theme
		// per sweep keeps the mix from collapsing onto the best arm.
		for _, themeID := range order {
			if len(picked) >= count {
				break
			}
			themeIn := rankInput{
				pool:            byTheme[themeID],
				masteryByTheme:  in.masteryByTheme,
				excludeQuestion: pickedSet,
				targetRating:    in.targetRating,
				asOf:            in.asOf,
			}
			best := bestUnderBucketLimits(themeIn, p, bucketTaken)
			if best == nil {
				continue
			}
			picked = append(picked, best.QuestionID)
			pickedSet[best.QuestionID] = true
			bucketTaken[best.bucket]++
			progressed = true
		}
		if !progressed {
			break
		}
	}

	return Selection{
		QuestionIDs: picked,
		Requested:   count,
		Shortfall:   len(picked) < count,
	}
}

func bestUnderBucketLimits(in rankInput, p Params, bucketTaken map[string]int) *scoredCandidate {
	var best *scoredCandidate
	for _, c := range in.pool {
		if in.excludeQuestion[c.QuestionID] {
			continue
		}
		bucket := p.bucketFor(c.Rating)
		if bucket == "" {
			continue
		}
		if limit, ok := p.BucketLimits[bucket]; ok && bucketTaken[bucket] >= limit {
			continue
		}
		mastery := in.masteryByTheme[c.ThemeID]
		sc := scoredCandidate{
			Candidate: c,
			tier:      p.tierFor(mastery),
			bucket:    bucket,
			score:     fitScore(c, mastery, in, p),
		}
		if best == nil || sc.score > best.score ||
			(sc.score == best.score && sc.QuestionID.String() < best.QuestionID.String()) {
			b := sc
			best = &b
		}
	}
	return best
}
