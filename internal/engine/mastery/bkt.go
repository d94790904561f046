package mastery

import "math"

// Bayesian Knowledge Tracing core. Two hidden states (mastered / not
// mastered), four parameters: prior mastery, learning transition, slip and
// guess. All functions are pure and clamp their outputs to [0,1].

func clamp01(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// PredictCorrect is the probability of a correct answer given the current
// mastery estimate: mastered and no slip, or unmastered and a lucky guess.
func PredictCorrect(pMastery, pS, pG float64) float64 {
	return clamp01(pMastery*(1-pS) + (1-pMastery)*pG)
}

// PosteriorGivenObs applies the Bayes update for one observed outcome.
func PosteriorGivenObs(pMastery float64, observedCorrect bool, pS, pG float64) float64 {
	var num, den float64
	if observedCorrect {
		num = pMastery * (1 - pS)
		den = num + (1-pMastery)*pG
	} else {
		num = pMastery * pS
		den = num + (1-pMastery)*(1-pG)
	}
	if den == 0 {
		// Degenerate corner (e.g. pMastery=1, pS=0 on a wrong answer):
		// keep the prior rather than dividing by zero.
		return clamp01(pMastery)
	}
	return clamp01(num / den)
}

// ApplyLearningTransition absorbs the post-observation learning opportunity:
// an unmastered student crosses over with probability pT.
func ApplyLearningTransition(pPosterior, pT float64) float64 {
	return clamp01(pPosterior + (1-pPosterior)*pT)
}

// Next runs the full online step: Bayes update for the observation, then the
// learning transition.
func Next(pMastery float64, observedCorrect bool, p Params) float64 {
	posterior := PosteriorGivenObs(pMastery, observedCorrect, p.PS, p.PG)
	return ApplyLearningTransition(posterior, p.PT)
}
