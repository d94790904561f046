package mistakes

import (
	"math"
	"sort"
)

// modelFeatureVector exposes the features to the linear model under stable
// names. The weight maps in params are keyed by these.
func modelFeatureVector(f Features) map[string]float64 {
	return map[string]float64{
		"time_spent_seconds":     f.TimeSpentSec,
		"changed_answer_count":   float64(f.ChangedAnswerCount),
		"blur_count":             float64(f.BlurCount),
		"remaining_time_seconds": f.RemainingTimeSec,
	}
}

// scoreModel runs the calibrated v1 classifier: one linear score per mistake
// type, turned into a distribution with a temperature-scaled softmax. The
// winning type and its calibrated probability come back; confidence below the
// configured floor is the caller's signal to fall back to the rule cascade.
func scoreModel(f Features, m *ModelParams) (mistakeType string, confidence float64, probs map[string]float64) {
	vec := modelFeatureVector(f)

	logits := make(map[string]float64, len(m.Weights))
	var maxLogit float64
	first := true
	for mt, weights := range m.Weights {
		z := m.Bias[mt]
		for name, w := range weights {
			z += w * vec[name]
		}
		z /= m.Temperature
		logits[mt] = z
		if first || z > maxLogit {
			maxLogit = z
			first = false
		}
	}

	// Softmax with the max subtracted for numeric stability.
	var total float64
	probs = make(map[string]float64, len(logits))
	for mt, z := range logits {
		e := math.Exp(z - maxLogit)
		probs[mt] = e
		total += e
	}
	for mt := range probs {
		probs[mt] /= total
	}

	// Deterministic winner on ties: highest probability, then type name.
	names := make([]string, 0, len(probs))
	for mt := range probs {
		names = append(names, mt)
	}
	sort.Strings(names)
	for _, mt := range names {
		if mistakeType == "" || probs[mt] > confidence {
			mistakeType = mt
			confidence = probs[mt]
		}
	}
	return mistakeType, confidence, probs
}
