package adaptive

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Candidate is one question from the eligible pool, annotated with the state
// the selector ranks on.
type Candidate struct {
	QuestionID uuid.UUID
	ThemeID    uuid.UUID
	Rating     float64
	LastSeenAt *time.Time
}

// Selection is the outcome of a pick. Shortfall is the explicit signal that
// the pool could not cover the request; the selector never pads with
// ineligible items.
type Selection struct {
	QuestionIDs []uuid.UUID
	Requested   int
	Shortfall   bool
}

// rankInput carries the per-user state the pure ranking step needs.
type rankInput struct {
	pool            []Candidate
	masteryByTheme  map[uuid.UUID]float64
	excludeQuestion map[uuid.UUID]bool
	targetRating    float64
	asOf            time.Time
}

// freshnessHorizonDays is where the freshness component saturates.
const freshnessHorizonDays = 30.0

func freshness(lastSeenAt *time.Time, asOf time.Time) float64 {
	if lastSeenAt == nil {
		return 1
	}
	days := asOf.Sub(*lastSeenAt).Hours() / 24
	if days <= 0 {
		return 0
	}
	if days >= freshnessHorizonDays {
		return 1
	}
	return days / freshnessHorizonDays
}

// fitScore combines weakness, desirable difficulty and freshness. The
// difficulty component peaks when the item rating sits exactly at the
// student's target and decays linearly with distance.
func fitScore(c Candidate, mastery float64, in rankInput, p Params) float64 {
	distance := math.Abs(in.targetRating - c.Rating)
	normalized := distance / 400.0
	if normalized > 1 {
		normalized = 1
	}
	return p.FitWeights.MasteryInverse*(1-mastery) +
		p.FitWeights.DifficultyDistance*(1-normalized) +
		p.FitWeights.Freshness*freshness(c.LastSeenAt, in.asOf)
}

type scoredCandidate struct {
	Candidate
	tier   string
	bucket string
	score  float64
}

// rankGreedy is the deterministic v0 selection: bucket the eligible pool by
// weakness tier and difficulty bucket, honor mix targets and bucket limits,
// rank by fit score with question-id tie-breaks, and fill.
func rankGreedy(in rankInput, p Params, count int) Selection {
	if count <= 0 {
		return Selection{Requested: count}
	}

	scored := make([]scoredCandidate, 0, len(in.pool))
	for _, c := range in.pool {
		if in.excludeQuestion[c.QuestionID] {
			continue
		}
		bucket := p.bucketFor(c.Rating)
		if bucket == "" {
			continue
		}
		mastery, ok := in.masteryByTheme[c.ThemeID]
		if !ok {
			// Unseen theme: treat as weak, it is exactly what the engine
			// wants surfaced.
			mastery = 0
		}
		scored = append(scored, scoredCandidate{
			Candidate: c,
			tier:      p.tierFor(mastery),
			bucket:    bucket,
			score:     fitScore(c, mastery, in, p),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].QuestionID.String() < scored[j].QuestionID.String()
	})

	mixTotal := p.ThemeMix.Weak + p.ThemeMix.Medium + p.ThemeMix.Mixed
	quota := map[string]int{
		"weak":   int(math.Round(float64(count) * p.ThemeMix.Weak / mixTotal)),
		"medium": int(math.Round(float64(count) * p.ThemeMix.Medium / mixTotal)),
		"mixed":  int(math.Round(float64(count) * p.ThemeMix.Mixed / mixTotal)),
	}

	var (
		picked      []uuid.UUID
		pickedSet   = map[uuid.UUID]bool{}
		tierTaken   = map[string]int{}
		bucketTaken = map[string]int{}
	)
	take := func(sc scoredCandidate) {
		picked = append(picked, sc.QuestionID)
		pickedSet[sc.QuestionID] = true
		tierTaken[sc.tier]++
		bucketTaken[sc.bucket]++
	}
	bucketFull := func(sc scoredCandidate) bool {
		limit, ok := p.BucketLimits[sc.bucket]
		return ok && bucketTaken[sc.bucket] >= limit
	}

	// First pass: honor tier quotas and bucket limits.
	for _, sc := range scored {
		if len(picked) >= count {
			break
		}
		if pickedSet[sc.QuestionID] || bucketFull(sc) {
			continue
		}
		if tierTaken[sc.tier] >= quota[sc.tier] {
			continue
		}
		take(sc)
	}
	// Second pass: quotas are targets, not hard caps. Top up from the
	// remaining ranked pool, still under bucket limits.
	for _, sc := range scored {
		if len(picked) >= count {
			break
		}
		if pickedSet[sc.QuestionID] || bucketFull(sc) {
			continue
		}
		take(sc)
	}

	return Selection{
		QuestionIDs: picked,
		Requested:   count,
		Shortfall:   len(picked) < count,
	}
}
