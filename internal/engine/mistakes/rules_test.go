package mistakes

import (
	"testing"

	"github.com/studyforge/learning-engine/internal/types"
)

func testRuleParams() Params {
	return Params{
		TimePressureThresholdSec: 30,
		FastWrongThresholdSec:    10,
		SlowWrongThresholdSec:    120,
		BlurThreshold:            3,
		Severity: map[string]int{
			types.MistakeChangedAnswer: 2,
			types.MistakeTimePressure:  2,
			types.MistakeFastWrong:     3,
			types.MistakeDistracted:    2,
			types.MistakeSlowWrong:     4,
			types.MistakeKnowledgeGap:  5,
		},
	}
}

func TestClassifyRulesPrecedence(t *testing.T) {
	// Matches both the changed-answer and fast-wrong rules; the earlier
	// rule must win.
	f := Features{
		ChangedAnswerCount: 1,
		TimeSpentSec:       5,
		RemainingTimeSec:   600,
	}
	got, _ := classifyRules(f, testRuleParams())
	if got != types.MistakeChangedAnswer {
		t.Fatalf("changed-answer must precede fast-wrong, got %s", got)
	}
}

func TestClassifyRulesCascade(t *testing.T) {
	p := testRuleParams()
	cases := []struct {
		name string
		f    Features
		want string
	}{
		{
			name: "changed answer",
			f:    Features{ChangedAnswerCount: 2, RemainingTimeSec: 600, TimeSpentSec: 45},
			want: types.MistakeChangedAnswer,
		},
		{
			name: "time pressure",
			f:    Features{RemainingTimeSec: 20, TimeSpentSec: 45},
			want: types.MistakeTimePressure,
		},
		{
			name: "fast wrong",
			f:    Features{RemainingTimeSec: 600, TimeSpentSec: 8},
			want: types.MistakeFastWrong,
		},
		{
			name: "distracted",
			f:    Features{RemainingTimeSec: 600, TimeSpentSec: 45, BlurCount: 4},
			want: types.MistakeDistracted,
		},
		{
			name: "slow wrong",
			f:    Features{RemainingTimeSec: 600, TimeSpentSec: 180},
			want: types.MistakeSlowWrong,
		},
		{
			name: "knowledge gap residual",
			f:    Features{RemainingTimeSec: 600, TimeSpentSec: 45},
			want: types.MistakeKnowledgeGap,
		},
		{
			name: "time pressure precedes distraction",
			f:    Features{RemainingTimeSec: 10, TimeSpentSec: 45, BlurCount: 10},
			want: types.MistakeTimePressure,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := classifyRules(tc.f, p)
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestClassifyRulesThresholdBoundaries(t *testing.T) {
	p := testRuleParams()

	// Thresholds are inclusive on the matching side.
	if got, _ := classifyRules(Features{RemainingTimeSec: 30, TimeSpentSec: 45}, p); got != types.MistakeTimePressure {
		t.Fatalf("remaining_time == threshold should match time pressure, got %s", got)
	}
	if got, _ := classifyRules(Features{RemainingTimeSec: 600, TimeSpentSec: 10}, p); got != types.MistakeFastWrong {
		t.Fatalf("time_spent == fast threshold should match fast wrong, got %s", got)
	}
	if got, _ := classifyRules(Features{RemainingTimeSec: 600, TimeSpentSec: 120}, p); got != types.MistakeSlowWrong {
		t.Fatalf("time_spent == slow threshold should match slow wrong, got %s", got)
	}
}

func TestParamsValidate(t *testing.T) {
	p := testRuleParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}

	bad := testRuleParams()
	bad.SlowWrongThresholdSec = 5
	if err := bad.Validate(); err == nil {
		t.Fatalf("slow threshold below fast threshold must be rejected")
	}

	missing := testRuleParams()
	delete(missing.Severity, types.MistakeSlowWrong)
	if err := missing.Validate(); err == nil {
		t.Fatalf("incomplete severity table must be rejected")
	}

	model := testRuleParams()
	model.Model = &ModelParams{Temperature: 0, MinConfidence: 0.6, Weights: map[string]map[string]float64{"KNOWLEDGE_GAP": {}}}
	if err := model.Validate(); err == nil {
		t.Fatalf("zero model temperature must be rejected")
	}
}
