package mastery

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDegenerateParams marks a parameter set the model cannot identify:
// slip or guess at 0.5 or above makes mastered and unmastered students
// indistinguishable.
var ErrDegenerateParams = errors.New("mastery: degenerate BKT parameters")

type FitParams struct {
	MaxIterations int     `json:"max_iterations"`
	Tolerance     float64 `json:"tolerance"`
	MinSequence   int     `json:"min_sequence"`
}

type Params struct {
	PL0 float64    `json:"p_l0"`
	PT  float64    `json:"p_t"`
	PS  float64    `json:"p_s"`
	PG  float64    `json:"p_g"`
	Fit *FitParams `json:"fit,omitempty"`
}

func ParseParams(raw []byte) (Params, error) {
	var p Params
	if err := json.Unmarshal(raw, &p); err != nil {
		return Params{}, fmt.Errorf("mastery: parse params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func (p Params) Validate() error {
	for name, v := range map[string]float64{"p_l0": p.PL0, "p_t": p.PT, "p_s": p.PS, "p_g": p.PG} {
		if v < 0 || v > 1 {
			return fmt.Errorf("mastery: %s=%v outside [0,1]", name, v)
		}
	}
	if p.PS >= 0.5 || p.PG >= 0.5 {
		return fmt.Errorf("%w: p_s=%v p_g=%v", ErrDegenerateParams, p.PS, p.PG)
	}
	return nil
}

func (p Params) fitSettings() FitParams {
	if p.Fit != nil {
		return *p.Fit
	}
	return FitParams{MaxIterations: 50, Tolerance: 1e-4, MinSequence: 5}
}
