package difficulty

import (
	"math"
	"testing"
)

func TestExpectedAtEqualRatings(t *testing.T) {
	if e := Expected(1000, 1000, 400); math.Abs(e-0.5) > 1e-9 {
		t.Fatalf("expected = %v, want 0.5", e)
	}
}

func TestEloWorkedExample(t *testing.T) {
	// Equal ratings, student answers correctly: the item loses.
	// new_rating = 1000 + 16*(0 - 0.5) = 992 for the item, and the mirrored
	// student-side update would be 1000 + 16*(1 - 0.5) = 1008.
	expectedItem := 1 - Expected(1000, 1000, 400)
	itemRating := UpdateRating(1000, 16, 0, expectedItem)
	if math.Abs(itemRating-992) > 1e-9 {
		t.Fatalf("item rating = %v, want 992", itemRating)
	}
	studentRating := UpdateRating(1000, 16, 1, Expected(1000, 1000, 400))
	if math.Abs(studentRating-1008) > 1e-9 {
		t.Fatalf("student rating = %v, want 1008", studentRating)
	}
}

func TestExpectedMonotoneInRatingGap(t *testing.T) {
	weak := Expected(900, 1100, 400)
	strong := Expected(1100, 900, 400)
	if weak >= 0.5 || strong <= 0.5 {
		t.Fatalf("expected monotonicity violated: weak=%v strong=%v", weak, strong)
	}
}

func TestStudentRatingFromMasteryClampsAndMaps(t *testing.T) {
	if r := StudentRatingFromMastery(0, 800, 1400); r != 800 {
		t.Fatalf("mastery 0 -> %v, want 800", r)
	}
	if r := StudentRatingFromMastery(1, 800, 1400); r != 1400 {
		t.Fatalf("mastery 1 -> %v, want 1400", r)
	}
	if r := StudentRatingFromMastery(0.5, 800, 1400); r != 1100 {
		t.Fatalf("mastery 0.5 -> %v, want 1100", r)
	}
	if r := StudentRatingFromMastery(-3, 800, 1400); r != 800 {
		t.Fatalf("mastery below range -> %v, want clamp to 800", r)
	}
}
