package difficulty

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/studyforge/learning-engine/internal/repos"
	"github.com/studyforge/learning-engine/internal/testutil"
	"github.com/studyforge/learning-engine/internal/types"
)

func defaultParams() Params {
	return Params{
		BaselineRating:   1000,
		KFactor:          16,
		Scale:            400,
		MasteryRatingMap: MasteryRatingMap{Min: 800, Max: 1400},
	}
}

func newTestService(t *testing.T) Service {
	t.Helper()
	db := testutil.NewTestDB(t)
	log := testutil.NewTestLogger(t)
	return NewService(db, log, repos.NewDifficultyStateRepo(db, log))
}

func TestUpdateInitializesAtBaseline(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	questionID := uuid.New()
	prov := types.Provenance{AlgoVersionID: uuid.New(), ParamsID: uuid.New(), RunID: uuid.New()}

	// Mastery 0.5 maps to rating 1100; a correct answer drops the item
	// rating by K * expected_item.
	state, err := svc.Update(ctx, nil, questionID, "", true, 0.5, defaultParams(), prov)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if state.Rating >= 1000 {
		t.Fatalf("correct answer should lower item rating, got %v", state.Rating)
	}
	if state.Attempts != 1 || state.Correct != 1 {
		t.Fatalf("counters = %d/%d, want 1/1", state.Attempts, state.Correct)
	}
	if state.PCorrectCached <= 0 || state.PCorrectCached >= 1 {
		t.Fatalf("p_correct_cached = %v, want in (0,1)", state.PCorrectCached)
	}
}

func TestUpdateRaisesRatingOnWrongAnswers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	questionID := uuid.New()
	prov := types.Provenance{RunID: uuid.New()}

	var last float64 = 1000
	for i := 0; i < 4; i++ {
		state, err := svc.Update(ctx, nil, questionID, "", false, 0.5, defaultParams(), prov)
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		if state.Rating <= last {
			t.Fatalf("wrong answer should raise item rating: %v -> %v", last, state.Rating)
		}
		last = state.Rating
	}
}

func TestCohortRatingsAreIndependent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	questionID := uuid.New()
	prov := types.Provenance{RunID: uuid.New()}

	if _, err := svc.Update(ctx, nil, questionID, "", false, 0.5, defaultParams(), prov); err != nil {
		t.Fatalf("global update: %v", err)
	}
	if _, err := svc.Update(ctx, nil, questionID, "2026-cohort", true, 0.5, defaultParams(), prov); err != nil {
		t.Fatalf("cohort update: %v", err)
	}

	global, err := svc.Get(ctx, questionID, "")
	if err != nil {
		t.Fatalf("get global: %v", err)
	}
	cohort, err := svc.Get(ctx, questionID, "2026-cohort")
	if err != nil {
		t.Fatalf("get cohort: %v", err)
	}
	if global.Rating <= 1000 || cohort.Rating >= 1000 {
		t.Fatalf("cohort rows leaked into each other: global=%v cohort=%v", global.Rating, cohort.Rating)
	}
}

func TestRatingsForFallsBackToBaseline(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seen := uuid.New()
	unseen := uuid.New()
	prov := types.Provenance{RunID: uuid.New()}

	if _, err := svc.Update(ctx, nil, seen, "", false, 0.5, defaultParams(), prov); err != nil {
		t.Fatalf("update: %v", err)
	}
	ratings, err := svc.RatingsFor(ctx, []uuid.UUID{seen, unseen}, "", defaultParams())
	if err != nil {
		t.Fatalf("ratings: %v", err)
	}
	if ratings[unseen] != 1000 {
		t.Fatalf("unseen rating = %v, want baseline 1000", ratings[unseen])
	}
	if ratings[seen] <= 1000 {
		t.Fatalf("seen rating = %v, want above baseline after wrong answer", ratings[seen])
	}
}
