package revision

import (
	"testing"
	"time"
)

func testParams() Params {
	return Params{
		MinAttempts: 3,
		Bands: []Band{
			{Name: "weak", UpperBound: 0.39},
			{Name: "medium", UpperBound: 0.69},
			{Name: "strong", UpperBound: 0.84},
			{Name: "mastered", UpperBound: 1.0},
		},
		SpacingDays: map[string]int{"weak": 1, "medium": 3, "strong": 7, "mastered": 14},
		Weights:     Weights{Mastery: 60, Recency: 30, LowDataBonus: 10},
		RecommendedCounts: map[string]CountRange{
			"weak":     {Min: 8, Max: 12},
			"medium":   {Min: 5, Max: 8},
			"strong":   {Min: 3, Max: 5},
			"mastered": {Min: 1, Max: 3},
		},
	}
}

func TestBandClassification(t *testing.T) {
	p := testParams()
	cases := []struct {
		mastery float64
		want    string
	}{
		{0.0, "weak"},
		{0.39, "weak"},
		{0.4, "medium"},
		{0.69, "medium"},
		{0.7, "strong"},
		{0.84, "strong"},
		{0.85, "mastered"},
		{1.0, "mastered"},
	}
	for _, c := range cases {
		if got := p.BandFor(c.mastery); got.Name != c.want {
			t.Fatalf("BandFor(%v) = %q, want %q", c.mastery, got.Name, c.want)
		}
	}
}

func TestValidateRejectsUnorderedBands(t *testing.T) {
	p := testParams()
	p.Bands[0], p.Bands[1] = p.Bands[1], p.Bands[0]
	if err := p.Validate(); err == nil {
		t.Fatalf("expected error for unordered bands")
	}
}

func TestValidateRejectsMissingSpacing(t *testing.T) {
	p := testParams()
	delete(p.SpacingDays, "strong")
	if err := p.Validate(); err == nil {
		t.Fatalf("expected error for band without spacing")
	}
}

func TestPriorityScoreBounds(t *testing.T) {
	p := testParams()
	asOf := time.Now()
	old := asOf.Add(-60 * 24 * time.Hour)
	score := priorityScore(0, &old, 3, asOf, p)
	if score < 0 || score > 100 {
		t.Fatalf("priority %v outside [0,100]", score)
	}
	// Zero mastery, maximally stale, thin data: everything fires.
	if score != 100 {
		t.Fatalf("priority = %v, want 100 at full weakness and staleness", score)
	}
}

func TestPriorityPrefersWeakerThemes(t *testing.T) {
	p := testParams()
	asOf := time.Now()
	recent := asOf.Add(-24 * time.Hour)
	weak := priorityScore(0.2, &recent, 10, asOf, p)
	strong := priorityScore(0.9, &recent, 10, asOf, p)
	if weak <= strong {
		t.Fatalf("weak theme priority %v should exceed strong theme %v", weak, strong)
	}
}

func TestLowDataBonusAppliesBelowTwiceMinAttempts(t *testing.T) {
	p := testParams()
	asOf := time.Now()
	recent := asOf.Add(-24 * time.Hour)
	thin := priorityScore(0.5, &recent, p.MinAttempts, asOf, p)
	dense := priorityScore(0.5, &recent, 2*p.MinAttempts, asOf, p)
	if thin-dense != p.Weights.LowDataBonus {
		t.Fatalf("low data bonus = %v, want %v", thin-dense, p.Weights.LowDataBonus)
	}
}

func TestRecommendedCountScalesWithWeakness(t *testing.T) {
	p := testParams()
	weakBand := p.Bands[0]
	atFloor := recommendedCount(weakBand, 0.39, p)
	atZero := recommendedCount(weakBand, 0, p)
	if atZero != 12 {
		t.Fatalf("count at mastery 0 = %d, want band max 12", atZero)
	}
	if atFloor >= atZero {
		t.Fatalf("count should shrink as mastery grows: %d vs %d", atFloor, atZero)
	}
}

func TestDueDateUsesBandSpacing(t *testing.T) {
	p := testParams()
	asOf := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	due := dueDate(asOf, p.Bands[1], p) // medium: 3 days
	want := time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Fatalf("due = %v, want %v", due, want)
	}
}
