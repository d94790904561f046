package revision

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyforge/learning-engine/internal/repos"
	"github.com/studyforge/learning-engine/internal/testutil"
	"github.com/studyforge/learning-engine/internal/types"
)

func newTestService(t *testing.T) (Service, repos.MasteryStateRepo, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	log := testutil.NewTestLogger(t)
	masteryRepo := repos.NewMasteryStateRepo(db, log)
	queueRepo := repos.NewRevisionQueueRepo(db, log)
	return NewService(db, log, masteryRepo, queueRepo), masteryRepo, db
}

func seedMastery(t *testing.T, repo repos.MasteryStateRepo, userID, themeID uuid.UUID, mastery float64, attempts int, last time.Time) {
	t.Helper()
	if err := repo.Upsert(context.Background(), nil, &types.MasteryState{
		UserID:        userID,
		ThemeID:       themeID,
		MasteryScore:  mastery,
		AttemptsTotal: attempts,
		CorrectTotal:  attempts / 2,
		LastAttemptAt: &last,
	}); err != nil {
		t.Fatalf("seed mastery: %v", err)
	}
}

func TestGenerateSkipsThemesWithTooFewAttempts(t *testing.T) {
	svc, masteryRepo, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	last := time.Now().Add(-48 * time.Hour)

	eligible := uuid.New()
	seedMastery(t, masteryRepo, userID, eligible, 0.3, 5, last)
	ineligible := uuid.New()
	seedMastery(t, masteryRepo, userID, ineligible, 0.3, 1, last)

	entries, err := svc.Generate(ctx, nil, userID, time.Now(), testParams(), types.Provenance{RunID: uuid.New()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].ThemeID != eligible {
		t.Fatalf("wrong theme survived the attempt filter")
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	svc, masteryRepo, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	last := time.Now().Add(-72 * time.Hour)
	asOf := time.Now()

	for i := 0; i < 3; i++ {
		seedMastery(t, masteryRepo, userID, uuid.New(), 0.2+float64(i)*0.2, 6, last)
	}

	first, err := svc.Generate(ctx, nil, userID, asOf, testParams(), types.Provenance{RunID: uuid.New()})
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	second, err := svc.Generate(ctx, nil, userID, asOf, testParams(), types.Provenance{RunID: uuid.New()})
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("regeneration changed entry count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ThemeID != second[i].ThemeID ||
			!first[i].DueDate.Equal(second[i].DueDate) ||
			first[i].PriorityScore != second[i].PriorityScore ||
			first[i].RecommendedCount != second[i].RecommendedCount {
			t.Fatalf("entry %d differs across regenerations:\n%+v\n%+v", i, first[i], second[i])
		}
	}

	// No duplicate rows in the store either.
	var n int64
	if err := db.Model(&types.RevisionEntry{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != int64(len(first)) {
		t.Fatalf("store holds %d rows, want %d (upsert, no duplicates)", n, len(first))
	}
}

func TestGenerateBreaksPriorityTiesByThemeID(t *testing.T) {
	svc, masteryRepo, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	last := time.Now().Add(-24 * time.Hour)

	// Identical mastery and attempts: identical priority.
	a := uuid.New()
	b := uuid.New()
	seedMastery(t, masteryRepo, userID, a, 0.5, 6, last)
	seedMastery(t, masteryRepo, userID, b, 0.5, 6, last)

	entries, err := svc.Generate(ctx, nil, userID, time.Now(), testParams(), types.Provenance{RunID: uuid.New()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].ThemeID.String() > entries[1].ThemeID.String() {
		t.Fatalf("tie not broken by ascending theme id")
	}
}

func TestRegenerationPreservesUserStatus(t *testing.T) {
	svc, masteryRepo, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	last := time.Now().Add(-48 * time.Hour)
	asOf := time.Now()
	seedMastery(t, masteryRepo, userID, uuid.New(), 0.3, 6, last)

	entries, err := svc.Generate(ctx, nil, userID, asOf, testParams(), types.Provenance{RunID: uuid.New()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := svc.Snooze(ctx, entries[0].ID); err != nil {
		t.Fatalf("snooze: %v", err)
	}

	// A nightly regen with identical inputs refreshes scores but must not
	// clobber what the user did with the entry.
	if _, err := svc.Generate(ctx, nil, userID, asOf, testParams(), types.Provenance{RunID: uuid.New()}); err != nil {
		t.Fatalf("regenerate: %v", err)
	}

	var row types.RevisionEntry
	if err := db.Where("id = ?", entries[0].ID).First(&row).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if row.Status != types.RevisionSnoozed {
		t.Fatalf("status = %q, want SNOOZED after regeneration", row.Status)
	}
}

func TestStatusTransitions(t *testing.T) {
	svc, masteryRepo, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	last := time.Now().Add(-48 * time.Hour)
	seedMastery(t, masteryRepo, userID, uuid.New(), 0.3, 6, last)

	entries, err := svc.Generate(ctx, nil, userID, time.Now(), testParams(), types.Provenance{RunID: uuid.New()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := svc.MarkDone(ctx, entries[0].ID); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	var row types.RevisionEntry
	if err := db.Where("id = ?", entries[0].ID).First(&row).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if row.Status != types.RevisionDone {
		t.Fatalf("status = %q, want DONE", row.Status)
	}
}
