package adaptive

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSampleBetaStaysInUnitInterval(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	shapes := [][2]float64{{1, 1}, {0.5, 0.5}, {5, 2}, {2, 5}, {100, 1}}
	for _, s := range shapes {
		for i := 0; i < 1000; i++ {
			v := sampleBeta(rng, s[0], s[1])
			if v < 0 || v > 1 {
				t.Fatalf("Beta(%v,%v) draw %v outside [0,1]", s[0], s[1], v)
			}
		}
	}
}

func TestSampleBetaMeanTracksShape(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	mean := func(a, b float64) float64 {
		var sum float64
		for i := 0; i < 5000; i++ {
			sum += sampleBeta(rng, a, b)
		}
		return sum / 5000
	}
	high := mean(50, 2)
	low := mean(2, 50)
	if high < 0.9 || low > 0.1 {
		t.Fatalf("Beta means off: Beta(50,2)=%v Beta(2,50)=%v", high, low)
	}
}

func TestSampleThemeOrderPrefersStrongArm(t *testing.T) {
	strong := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	weak := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	arms := map[uuid.UUID]armState{
		strong: {ThemeID: strong, Alpha: 200, Beta: 2},
		weak:   {ThemeID: weak, Alpha: 2, Beta: 200},
	}

	rng := rand.New(rand.NewSource(42))
	strongFirst := 0
	for i := 0; i < 200; i++ {
		order := sampleThemeOrder(rng, []uuid.UUID{strong, weak}, arms)
		if order[0] == strong {
			strongFirst++
		}
	}
	if strongFirst < 190 {
		t.Fatalf("strong arm should lead almost every draw, led %d/200", strongFirst)
	}
}

func TestSampleThemeOrderUsesUniformPriorForNewThemes(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	rng := rand.New(rand.NewSource(3))
	order := sampleThemeOrder(rng, []uuid.UUID{a, b}, map[uuid.UUID]armState{})
	if len(order) != 2 {
		t.Fatalf("expected both themes in the order, got %d", len(order))
	}
}

func TestRankThompsonFillsRequestWithoutDuplicates(t *testing.T) {
	themeA := uuid.New()
	themeB := uuid.New()
	pool := append(poolOf(themeA, 950, 1000, 1050), poolOf(themeB, 960, 1010, 1060)...)
	in := rankInput{
		pool:            pool,
		masteryByTheme:  map[uuid.UUID]float64{themeA: 0.2, themeB: 0.6},
		excludeQuestion: map[uuid.UUID]bool{},
		targetRating:    1000,
		asOf:            time.Now().UTC(),
	}

	rng := rand.New(rand.NewSource(11))
	sel := rankThompson(rng, in, testParams(), 4, map[uuid.UUID]armState{})
	if len(sel.QuestionIDs) != 4 || sel.Shortfall {
		t.Fatalf("expected a full pick of 4, got %d (shortfall=%v)", len(sel.QuestionIDs), sel.Shortfall)
	}
	seen := map[uuid.UUID]bool{}
	for _, id := range sel.QuestionIDs {
		if seen[id] {
			t.Fatalf("question %s selected twice", id)
		}
		seen[id] = true
	}
}

func TestRankThompsonShortfall(t *testing.T) {
	themeID := uuid.New()
	in := rankInput{
		pool:            poolOf(themeID, 950, 1050),
		masteryByTheme:  map[uuid.UUID]float64{themeID: 0.2},
		excludeQuestion: map[uuid.UUID]bool{},
		targetRating:    1000,
		asOf:            time.Now().UTC(),
	}

	rng := rand.New(rand.NewSource(5))
	sel := rankThompson(rng, in, testParams(), 5, map[uuid.UUID]armState{})
	if len(sel.QuestionIDs) != 2 || !sel.Shortfall {
		t.Fatalf("expected 2 picks with shortfall, got %d (shortfall=%v)", len(sel.QuestionIDs), sel.Shortfall)
	}
}

func TestRankThompsonRespectsExclusions(t *testing.T) {
	themeID := uuid.New()
	pool := poolOf(themeID, 950, 1000, 1050)
	in := rankInput{
		pool:            pool,
		masteryByTheme:  map[uuid.UUID]float64{themeID: 0.2},
		excludeQuestion: map[uuid.UUID]bool{pool[1].QuestionID: true},
		targetRating:    1000,
		asOf:            time.Now().UTC(),
	}

	rng := rand.New(rand.NewSource(9))
	sel := rankThompson(rng, in, testParams(), 3, map[uuid.UUID]armState{})
	for _, id := range sel.QuestionIDs {
		if id == pool[1].QuestionID {
			t.Fatalf("excluded question %s made it into the selection", id)
		}
	}
	if len(sel.QuestionIDs) != 2 || !sel.Shortfall {
		t.Fatalf("expected 2 picks with shortfall after exclusion, got %d", len(sel.QuestionIDs))
	}
}

func TestRankThompsonRoundRobinsAcrossThemes(t *testing.T) {
	themeA := uuid.New()
	themeB := uuid.New()
	pool := append(poolOf(themeA, 950, 1000, 1050), poolOf(themeB, 960, 1010)...)
	in := rankInput{
		pool:            pool,
		masteryByTheme:  map[uuid.UUID]float64{themeA: 0.2, themeB: 0.2},
		excludeQuestion: map[uuid.UUID]bool{},
		targetRating:    1000,
		asOf:            time.Now().UTC(),
	}

	rng := rand.New(rand.NewSource(17))
	sel := rankThompson(rng, in, testParams(), 2, map[uuid.UUID]armState{})
	if len(sel.QuestionIDs) != 2 {
		t.Fatalf("expected 2 picks, got %d", len(sel.QuestionIDs))
	}
	themes := map[uuid.UUID]bool{}
	for _, id := range sel.QuestionIDs {
		for _, c := range pool {
			if c.QuestionID == id {
				themes[c.ThemeID] = true
			}
		}
	}
	if len(themes) != 2 {
		t.Fatalf("round robin should touch both themes on the first sweep, got %d", len(themes))
	}
}
