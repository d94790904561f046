package mastery

import (
	"fmt"
	"math"
)

// FitSequences re-estimates BKT parameters from historical right/wrong
// sequences with expectation-maximization (Baum-Welch on the two-state HMM
// with absorbing mastery). The returned parameters pass the degeneracy guard
// or an error is returned; callers fall back to the previous active set.
//
// This runs only on the batch path, never inline with online updates.
func FitSequences(sequences [][]bool, init Params) (Params, error) {
	settings := init.fitSettings()

	var usable [][]bool
	for _, seq := range sequences {
		if len(seq) >= settings.MinSequence {
			usable = append(usable, seq)
		}
	}
	if len(usable) == 0 {
		return Params{}, fmt.Errorf("mastery: no sequences of length >= %d to fit", settings.MinSequence)
	}

	p := init
	prevLL := math.Inf(-1)
	for iter := 0; iter < settings.MaxIterations; iter++ {
		var (
			sumFirstMastered   float64 // gamma_1(mastered) over sequences
			sumTransitions     float64 // expected 0->1 crossings
			sumUnmasteredSteps float64 // gamma_t(unmastered), t < T
			sumMastered        float64 // gamma_t(mastered), all t
			sumMasteredWrong   float64 // gamma_t(mastered) on wrong answers
			sumUnmastered      float64 // gamma_t(unmastered), all t
			sumUnmasteredRight float64 // gamma_t(unmastered) on right answers
			ll                 float64
		)

		for _, seq := range usable {
			gamma, xi01, seqLL := forwardBackward(seq, p)
			ll += seqLL
			sumFirstMastered += gamma[0][1]
			for t := range seq {
				sumMastered += gamma[t][1]
				sumUnmastered += gamma[t][0]
				if seq[t] {
					sumUnmasteredRight += gamma[t][0]
				} else {
					sumMasteredWrong += gamma[t][1]
				}
				if t < len(seq)-1 {
					sumUnmasteredSteps += gamma[t][0]
					sumTransitions += xi01[t]
				}
			}
		}

		next := p
		next.PL0 = sumFirstMastered / float64(len(usable))
		if sumUnmasteredSteps > 0 {
			next.PT = sumTransitions / sumUnmasteredSteps
		}
		if sumMastered > 0 {
			next.PS = sumMasteredWrong / sumMastered
		}
		if sumUnmastered > 0 {
			next.PG = sumUnmasteredRight / sumUnmastered
		}
		next.PL0 = clamp01(next.PL0)
		next.PT = clamp01(next.PT)
		next.PS = clamp01(next.PS)
		next.PG = clamp01(next.PG)
		p = next

		if math.Abs(ll-prevLL) < settings.Tolerance {
			break
		}
		prevLL = ll
	}

	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// forwardBackward returns per-step state posteriors gamma[t][state], the
// expected unmastered->mastered crossing mass xi01[t] (for t < T-1), and the
// sequence log-likelihood. State 0 is unmastered, state 1 mastered.
func forwardBackward(seq []bool, p Params) (gamma [][2]float64, xi01 []float64, ll float64) {
	n := len(seq)
	emit := func(state int, correct bool) float64 {
		if state == 1 {
			if correct {
				return 1 - p.PS
			}
			return p.PS
		}
		if correct {
			return p.PG
		}
		return 1 - p.PG
	}

	// Scaled forward pass.
	alpha := make([][2]float64, n)
	scale := make([]float64, n)
	alpha[0][0] = (1 - p.PL0) * emit(0, seq[0])
	alpha[0][1] = p.PL0 * emit(1, seq[0])
	scale[0] = alpha[0][0] + alpha[0][1]
	if scale[0] == 0 {
		scale[0] = math.SmallestNonzeroFloat64
	}
	alpha[0][0] /= scale[0]
	alpha[0][1] /= scale[0]
	for t := 1; t < n; t++ {
		alpha[t][0] = alpha[t-1][0] * (1 - p.PT) * emit(0, seq[t])
		alpha[t][1] = (alpha[t-1][0]*p.PT + alpha[t-1][1]) * emit(1, seq[t])
		scale[t] = alpha[t][0] + alpha[t][1]
		if scale[t] == 0 {
			scale[t] = math.SmallestNonzeroFloat64
		}
		alpha[t][0] /= scale[t]
		alpha[t][1] /= scale[t]
	}

	// Backward pass with the same scaling.
	beta := make([][2]float64, n)
	beta[n-1][0] = 1
	beta[n-1][1] = 1
	for t := n - 2; t >= 0; t-- {
		e0 := emit(0, seq[t+1])
		e1 := emit(1, seq[t+1])
		beta[t][0] = ((1-p.PT)*e0*beta[t+1][0] + p.PT*e1*beta[t+1][1]) / scale[t+1]
		beta[t][1] = e1 * beta[t+1][1] / scale[t+1]
	}

	gamma = make([][2]float64, n)
	for t := 0; t < n; t++ {
		g0 := alpha[t][0] * beta[t][0]
		g1 := alpha[t][1] * beta[t][1]
		total := g0 + g1
		if total == 0 {
			total = math.SmallestNonzeroFloat64
		}
		gamma[t][0] = g0 / total
		gamma[t][1] = g1 / total
	}

	if n > 1 {
		xi01 = make([]float64, n-1)
		for t := 0; t < n-1; t++ {
			e1 := emit(1, seq[t+1])
			xi01[t] = alpha[t][0] * p.PT * e1 * beta[t+1][1] / scale[t+1]
		}
	}

	for t := 0; t < n; t++ {
		ll += math.Log(scale[t])
	}
	return gamma, xi01, ll
}
