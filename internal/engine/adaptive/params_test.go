package adaptive

import "testing"

func TestValidateRejectsOverlappingBuckets(t *testing.T) {
	p := testParams()
	p.DifficultyBuckets = map[string]RatingRange{
		"easy":   {Min: 0, Max: 1000},
		"medium": {Min: 900, Max: 1100},
	}
	if err := p.Validate(); err == nil {
		t.Fatalf("overlapping buckets must be rejected")
	}
}

func TestValidateAcceptsTouchingBuckets(t *testing.T) {
	// Shared boundaries are fine: ranges are half-open [min, max).
	if err := testParams().Validate(); err != nil {
		t.Fatalf("touching buckets rejected: %v", err)
	}
}

func TestBucketForIsDeterministic(t *testing.T) {
	p := testParams()
	cases := []struct {
		rating float64
		want   string
	}{
		{0, "easy"},
		{899.9, "easy"},
		{900, "medium"},
		{1100, "hard"},
		{4000, ""},
		{-1, ""},
	}
	for _, tc := range cases {
		for i := 0; i < 20; i++ {
			if got := p.bucketFor(tc.rating); got != tc.want {
				t.Fatalf("bucketFor(%v) = %q, want %q", tc.rating, got, tc.want)
			}
		}
	}
}
