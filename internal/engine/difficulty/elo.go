package difficulty

import "math"

// Elo-lite rating math for item difficulty calibration. The question is
// treated as the student's opponent: a correct answer is a loss from the
// item's perspective, so its rating drops, and vice versa.

// Expected is the probability the student beats the question (answers
// correctly) under a logistic model.
func Expected(ratingStudent, ratingQuestion, scale float64) float64 {
	return 1.0 / (1.0 + math.Exp(-(ratingStudent-ratingQuestion)/scale))
}

// UpdateRating applies one outcome to a rating. outcomeForItem and
// expectedForItem are from the item's perspective: a student win scores 0
// for the item.
func UpdateRating(rating, k, outcomeForItem, expectedForItem float64) float64 {
	return rating + k*(outcomeForItem-expectedForItem)
}

// StudentRatingFromMastery maps a mastery score in [0,1] onto the configured
// rating interval. Tracking a separate student-side rating is a
// configuration choice this engine does not take; the mastery estimate
// already carries the signal.
func StudentRatingFromMastery(mastery, min, max float64) float64 {
	if mastery < 0 {
		mastery = 0
	}
	if mastery > 1 {
		mastery = 1
	}
	return min + mastery*(max-min)
}
