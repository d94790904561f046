package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyforge/learning-engine/internal/engine/adaptive"
	"github.com/studyforge/learning-engine/internal/engine/difficulty"
	"github.com/studyforge/learning-engine/internal/engine/mastery"
	"github.com/studyforge/learning-engine/internal/engine/mistakes"
	"github.com/studyforge/learning-engine/internal/engine/revision"
	"github.com/studyforge/learning-engine/internal/ledger"
	"github.com/studyforge/learning-engine/internal/locks"
	"github.com/studyforge/learning-engine/internal/registry"
	"github.com/studyforge/learning-engine/internal/repos"
	"github.com/studyforge/learning-engine/internal/testutil"
	"github.com/studyforge/learning-engine/internal/types"
)

type engineFixture struct {
	eng    *Engine
	db     *gorm.DB
	ledger ledger.Service
}

func newEngineFixture(t *testing.T, seed bool) engineFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	log := testutil.NewTestLogger(t)

	versionRepo := repos.NewAlgoVersionRepo(db, log)
	paramsRepo := repos.NewAlgoParamsRepo(db, log)
	runRepo := repos.NewAlgoRunRepo(db, log)
	attemptRepo := repos.NewAttemptRepo(db, log)
	masteryRepo := repos.NewMasteryStateRepo(db, log)
	difficultyRepo := repos.NewDifficultyStateRepo(db, log)
	revisionRepo := repos.NewRevisionQueueRepo(db, log)
	mistakeRepo := repos.NewMistakeRepo(db, log)
	banditRepo := repos.NewBanditArmRepo(db, log)
	lockRepo := repos.NewJobLockRepo(db, log)

	reg := registry.NewService(db, log, versionRepo, paramsRepo)
	if seed {
		if err := reg.Seed(context.Background()); err != nil {
			t.Fatalf("seed registry: %v", err)
		}
	}
	led := ledger.NewService(db, log, runRepo)
	diffSvc := difficulty.NewService(db, log, difficultyRepo)

	eng := New(Deps{
		DB:          db,
		Log:         log,
		Registry:    reg,
		Ledger:      led,
		Locks:       locks.NewGormLock(db, log, lockRepo),
		Mastery:     mastery.NewService(db, log, masteryRepo, attemptRepo),
		Difficulty:  diffSvc,
		Revision:    revision.NewService(db, log, masteryRepo, revisionRepo),
		Adaptive:    adaptive.NewService(db, log, attemptRepo, masteryRepo, banditRepo, diffSvc),
		Mistakes:    mistakes.NewService(db, log, mistakeRepo),
		AttemptRepo: attemptRepo,
		MasteryRepo: masteryRepo,
		BanditRepo:  banditRepo,
	})
	return engineFixture{eng: eng, db: db, ledger: led}
}

func outcome(userID uuid.UUID, correct bool) AttemptOutcome {
	return AttemptOutcome{
		UserID:           userID,
		QuestionID:       uuid.New(),
		ThemeID:          uuid.New(),
		IsCorrect:        correct,
		ResponseTimeSec:  45,
		RemainingTimeSec: 600,
		OccurredAt:       time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestResolveActiveAfterSeed(t *testing.T) {
	f := newEngineFixture(t, true)
	for _, key := range types.AllAlgoKeys() {
		v, p, err := f.eng.ResolveActive(context.Background(), key)
		if err != nil {
			t.Fatalf("resolve %s: %v", key, err)
		}
		if v == nil || v.Status != types.VersionActive {
			t.Fatalf("seed must leave an active version for %s", key)
		}
		if p == nil || !p.IsActive {
			t.Fatalf("seed must leave active params for %s", key)
		}
	}
}

func TestIngestWrongAttemptRunsFullPipeline(t *testing.T) {
	f := newEngineFixture(t, true)
	ctx := context.Background()
	userID := uuid.New()
	in := outcome(userID, false)
	in.ResponseTimeSec = 5
	in.ChangedAnswerCount = 1

	attempt, err := f.eng.IngestAttempt(ctx, in, types.TriggerSubmit)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	var cls types.MistakeClassification
	if err := f.db.Where("attempt_id = ?", attempt.ID).First(&cls).Error; err != nil {
		t.Fatalf("classification row missing: %v", err)
	}
	if cls.MistakeType != types.MistakeChangedAnswer {
		t.Fatalf("expected CHANGED_ANSWER_WRONG, got %s", cls.MistakeType)
	}

	var ms types.MasteryState
	if err := f.db.Where("user_id = ? AND theme_id = ?", userID, in.ThemeID).First(&ms).Error; err != nil {
		t.Fatalf("mastery row missing: %v", err)
	}
	if ms.AttemptsTotal != 1 {
		t.Fatalf("expected one counted attempt, got %d", ms.AttemptsTotal)
	}

	var ds types.DifficultyState
	if err := f.db.Where("question_id = ?", in.QuestionID).First(&ds).Error; err != nil {
		t.Fatalf("difficulty row missing: %v", err)
	}
	if ds.Rating <= 1000 {
		t.Fatalf("wrong answer must raise the question rating, got %v", ds.Rating)
	}

	runs, err := f.ledger.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) < 3 {
		t.Fatalf("expected one run per state-mutating leg, got %d", len(runs))
	}
	for _, r := range runs {
		if r.Status != types.RunStatusSuccess {
			t.Fatalf("run %s not marked terminal success: %s", r.ID, r.Status)
		}
	}
}

func TestIngestCorrectAttemptSkipsClassification(t *testing.T) {
	f := newEngineFixture(t, true)
	ctx := context.Background()
	in := outcome(uuid.New(), true)

	attempt, err := f.eng.IngestAttempt(ctx, in, types.TriggerSubmit)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	var count int64
	if err := f.db.Model(&types.MistakeClassification{}).Where("attempt_id = ?", attempt.ID).Count(&count).Error; err != nil {
		t.Fatalf("count classifications: %v", err)
	}
	if count != 0 {
		t.Fatalf("correct attempts must not be classified")
	}
}

func TestGenerateRevisionQueueAfterAttempts(t *testing.T) {
	f := newEngineFixture(t, true)
	ctx := context.Background()
	userID := uuid.New()
	themeID := uuid.New()
	asOf := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	// Three attempts clear the default min_attempts gate.
	for i := 0; i < 3; i++ {
		in := outcome(userID, i%2 == 0)
		in.ThemeID = themeID
		in.OccurredAt = asOf.AddDate(0, 0, -i)
		if _, err := f.eng.IngestAttempt(ctx, in, types.TriggerSubmit); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}

	entries, err := f.eng.GenerateRevisionQueue(ctx, userID, asOf, types.TriggerManual)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one queue entry for the single theme, got %d", len(entries))
	}
	if entries[0].Status != types.RevisionDue {
		t.Fatalf("fresh entry must be DUE, got %s", entries[0].Status)
	}
}

func TestGenerateRevisionQueueDegradesWithoutConfig(t *testing.T) {
	f := newEngineFixture(t, false)

	entries, err := f.eng.GenerateRevisionQueue(context.Background(), uuid.New(), time.Now().UTC(), types.TriggerNightly)
	if err != nil {
		t.Fatalf("missing config must degrade, not error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty queue without config, got %d entries", len(entries))
	}
}

func TestSelectAdaptiveShortfallEndToEnd(t *testing.T) {
	f := newEngineFixture(t, true)
	ctx := context.Background()
	themeID := uuid.New()
	pool := make([]adaptive.PoolItem, 0, 5)
	for i := 0; i < 5; i++ {
		pool = append(pool, adaptive.PoolItem{QuestionID: uuid.New(), ThemeID: themeID})
	}

	sel, err := f.eng.SelectAdaptiveQuestions(ctx, uuid.New(), "", pool, 20, time.Now().UTC(), types.TriggerAPI)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(sel.QuestionIDs) != 5 || !sel.Shortfall {
		t.Fatalf("expected 5 picks with explicit shortfall, got %d (shortfall=%v)", len(sel.QuestionIDs), sel.Shortfall)
	}
}

func TestSelectAdaptiveDegradesWithoutConfig(t *testing.T) {
	f := newEngineFixture(t, false)

	sel, err := f.eng.SelectAdaptiveQuestions(context.Background(), uuid.New(), "", nil, 10, time.Now().UTC(), types.TriggerAPI)
	if err != nil {
		t.Fatalf("missing config must degrade, not error: %v", err)
	}
	if len(sel.QuestionIDs) != 0 || !sel.Shortfall {
		t.Fatalf("expected empty shortfall selection without config")
	}
}

func TestJobLockRoundTrip(t *testing.T) {
	f := newEngineFixture(t, true)
	ctx := context.Background()

	ok, err := f.eng.AcquireJobLock(ctx, "nightly_revision", time.Hour)
	if err != nil || !ok {
		t.Fatalf("first acquire should succeed: ok=%v err=%v", ok, err)
	}
	ok, err = f.eng.AcquireJobLock(ctx, "nightly_revision", time.Hour)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatalf("second acquire within the lease must fail")
	}
	if err := f.eng.ReleaseJobLock(ctx, "nightly_revision"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = f.eng.AcquireJobLock(ctx, "nightly_revision", time.Hour)
	if err != nil || !ok {
		t.Fatalf("acquire after release should succeed: ok=%v err=%v", ok, err)
	}
}
