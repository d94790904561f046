package revision

import (
	"math"
	"time"
)

// recencyHorizonDays is where the recency factor saturates: a theme untouched
// this long is maximally overdue.
const recencyHorizonDays = 30.0

// recencyFactor grows linearly with days since the last attempt and
// saturates at 1.
func recencyFactor(lastAttemptAt *time.Time, asOf time.Time) float64 {
	if lastAttemptAt == nil {
		return 1
	}
	days := asOf.Sub(*lastAttemptAt).Hours() / 24
	if days <= 0 {
		return 0
	}
	if days >= recencyHorizonDays {
		return 1
	}
	return days / recencyHorizonDays
}

// priorityScore combines weakness, staleness and a low-data nudge on the
// configured 0-100 scale. Thin evidence means attempts below twice the
// eligibility floor: the theme qualifies for the queue, but the engine wants
// more observations before trusting its band.
func priorityScore(mastery float64, lastAttemptAt *time.Time, attempts int, asOf time.Time, p Params) float64 {
	score := p.Weights.Mastery*(1-mastery) + p.Weights.Recency*recencyFactor(lastAttemptAt, asOf)
	if attempts < 2*p.MinAttempts {
		score += p.Weights.LowDataBonus
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// recommendedCount picks a count inside the band's configured range, pushed
// toward the top of the range for weaker mastery.
func recommendedCount(band Band, mastery float64, p Params) int {
	cr := p.RecommendedCounts[band.Name]
	if cr.Max <= cr.Min {
		return cr.Min
	}
	return cr.Min + int(math.Round(float64(cr.Max-cr.Min)*(1-mastery)))
}

// dueDate truncates to the day: the queue is day-granular so regeneration on
// the same day targets the same row.
func dueDate(asOf time.Time, band Band, p Params) time.Time {
	days := p.SpacingDays[band.Name]
	due := asOf.AddDate(0, 0, days)
	return time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
}
