package mistakes

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/studyforge/learning-engine/internal/repos"
	"github.com/studyforge/learning-engine/internal/testutil"
	"github.com/studyforge/learning-engine/internal/types"
)

func newTestService(t *testing.T) (Service, repos.MistakeRepo) {
	t.Helper()
	db := testutil.NewTestDB(t)
	log := testutil.NewTestLogger(t)
	repo := repos.NewMistakeRepo(db, log)
	return NewService(db, log, repo), repo
}

func wrongAttempt(timeSpent float64, changed int) *types.Attempt {
	return &types.Attempt{
		ID:                 uuid.New(),
		UserID:             uuid.New(),
		QuestionID:         uuid.New(),
		ThemeID:            uuid.New(),
		IsCorrect:          false,
		ResponseTimeSec:    timeSpent,
		ChangedAnswerCount: changed,
		RemainingTimeSec:   600,
		OccurredAt:         time.Now().UTC(),
	}
}

func TestClassifyReturnsNilForCorrectAttempt(t *testing.T) {
	svc, _ := newTestService(t)
	a := wrongAttempt(45, 0)
	a.IsCorrect = true

	got, err := svc.Classify(context.Background(), nil, a, "v0.1.0", testRuleParams(), types.Provenance{})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got != nil {
		t.Fatalf("correct attempts must not be classified, got %+v", got)
	}
}

func TestClassifyPersistsRuleResult(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	a := wrongAttempt(5, 1)
	prov := types.Provenance{AlgoVersionID: uuid.New(), ParamsID: uuid.New(), RunID: uuid.New()}

	got, err := svc.Classify(ctx, nil, a, "v0.1.0", testRuleParams(), prov)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.MistakeType != types.MistakeChangedAnswer {
		t.Fatalf("expected CHANGED_ANSWER_WRONG, got %s", got.MistakeType)
	}
	if got.Source != types.MistakeSourceRuleV0 {
		t.Fatalf("expected RULE_V0 source, got %s", got.Source)
	}
	if got.Severity != 2 {
		t.Fatalf("expected severity 2 from the lookup table, got %d", got.Severity)
	}
	if got.RunID != prov.RunID {
		t.Fatalf("provenance run id not carried through")
	}

	stored, err := repo.GetByAttempt(ctx, nil, a.ID)
	if err != nil {
		t.Fatalf("get by attempt: %v", err)
	}
	if stored == nil || stored.MistakeType != types.MistakeChangedAnswer {
		t.Fatalf("classification not persisted")
	}
}

func TestClassifyIsWriteOncePerAttempt(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	a := wrongAttempt(5, 1)

	first, err := svc.Classify(ctx, nil, a, "v0.1.0", testRuleParams(), types.Provenance{})
	if err != nil {
		t.Fatalf("first classify: %v", err)
	}
	if _, err := svc.Classify(ctx, nil, a, "v0.1.0", testRuleParams(), types.Provenance{}); err != nil {
		t.Fatalf("repeat classify must not error: %v", err)
	}

	stored, err := repo.GetByAttempt(ctx, nil, a.ID)
	if err != nil {
		t.Fatalf("get by attempt: %v", err)
	}
	if stored.ID != first.ID {
		t.Fatalf("repeat classification must not replace the original row")
	}
}

func TestClassifyUsesModelWhenConfident(t *testing.T) {
	svc, _ := newTestService(t)
	p := testRuleParams()
	p.Model = testModel()

	// Fast and wrong, but no changed answers: rules would also say
	// FAST_WRONG, and the model is confident.
	got, err := svc.Classify(context.Background(), nil, wrongAttempt(4, 0), "v1.0.0", p, types.Provenance{})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Source != types.MistakeSourceModelV1 {
		t.Fatalf("expected MODEL_V1 source, got %s", got.Source)
	}
	if got.Confidence < p.Model.MinConfidence {
		t.Fatalf("persisted confidence %v below floor %v", got.Confidence, p.Model.MinConfidence)
	}
}

func TestClassifyFallsBackBelowConfidenceFloor(t *testing.T) {
	svc, _ := newTestService(t)
	p := testRuleParams()
	p.Model = testModel()
	// Flatten the distribution so no type clears the floor.
	p.Model.Temperature = 100

	got, err := svc.Classify(context.Background(), nil, wrongAttempt(4, 0), "v1.0.0", p, types.Provenance{})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Source != types.MistakeSourceRuleV0 {
		t.Fatalf("low-confidence model must fall back to rules, got source %s", got.Source)
	}
	if got.MistakeType != types.MistakeFastWrong {
		t.Fatalf("fallback should apply the cascade, got %s", got.MistakeType)
	}
}

func TestClassifyFallsBackWhenModelAbsent(t *testing.T) {
	svc, _ := newTestService(t)

	got, err := svc.Classify(context.Background(), nil, wrongAttempt(4, 0), "v1.0.0", testRuleParams(), types.Provenance{})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Source != types.MistakeSourceRuleV0 {
		t.Fatalf("v1 without model params must fall back to rules, got %s", got.Source)
	}
}
