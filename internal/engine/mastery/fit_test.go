package mastery

import (
	"testing"
)

func learnerSequence(failures, successes int) []bool {
	seq := make([]bool, 0, failures+successes)
	for i := 0; i < failures; i++ {
		seq = append(seq, false)
	}
	for i := 0; i < successes; i++ {
		seq = append(seq, true)
	}
	return seq
}

func TestFitSequencesRecoversLearningShape(t *testing.T) {
	// Students who start wrong and end consistently right should fit a
	// model with meaningful learning transition and a non-degenerate slip.
	var seqs [][]bool
	for i := 0; i < 20; i++ {
		seqs = append(seqs, learnerSequence(3, 7))
	}
	init := Params{PL0: 0.2, PT: 0.15, PS: 0.1, PG: 0.2}
	fitted, err := FitSequences(seqs, init)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if fitted.PT <= 0 {
		t.Fatalf("expected positive learning transition, got %v", fitted.PT)
	}
	if fitted.PS >= 0.5 || fitted.PG >= 0.5 {
		t.Fatalf("fit returned degenerate params: %+v", fitted)
	}
}

func TestFitSequencesRejectsTooLittleData(t *testing.T) {
	init := Params{PL0: 0.2, PT: 0.15, PS: 0.1, PG: 0.2}
	_, err := FitSequences([][]bool{{true, false}}, init)
	if err == nil {
		t.Fatalf("expected error for sequences below min_sequence")
	}
}

func TestFitSequencesGuardsDegenerateOutcome(t *testing.T) {
	// All-correct sequences push the guess estimate toward 1 for students
	// the model considers unmastered; the guard must reject such a fit
	// instead of activating it.
	var seqs [][]bool
	for i := 0; i < 10; i++ {
		seqs = append(seqs, learnerSequence(5, 0))
	}
	init := Params{PL0: 0.5, PT: 0.01, PS: 0.45, PG: 0.45}
	fitted, err := FitSequences(seqs, init)
	if err == nil {
		if fitted.PS >= 0.5 || fitted.PG >= 0.5 {
			t.Fatalf("degenerate params escaped the guard: %+v", fitted)
		}
	}
}
