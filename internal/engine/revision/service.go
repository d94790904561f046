package revision

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/repos"
	"github.com/studyforge/learning-engine/internal/types"
)

type Service interface {
	// Generate rebuilds the user's revision queue from current mastery
	// state. Upserts on (user, theme, due_date): regenerating with unchanged
	// inputs rewrites identical rows, never duplicates.
	Generate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, asOf time.Time, p Params, prov types.Provenance) ([]*types.RevisionEntry, error)
	ListDue(ctx context.Context, userID uuid.UUID, asOf time.Time) ([]*types.RevisionEntry, error)
	MarkDone(ctx context.Context, entryID uuid.UUID) error
	Snooze(ctx context.Context, entryID uuid.UUID) error
	Skip(ctx context.Context, entryID uuid.UUID) error
}

type service struct {
	db          *gorm.DB
	log         *logger.Logger
	masteryRepo repos.MasteryStateRepo
	queueRepo   repos.RevisionQueueRepo
}

func NewService(db *gorm.DB, baseLog *logger.Logger, masteryRepo repos.MasteryStateRepo, queueRepo repos.RevisionQueueRepo) Service {
	return &service{
		db:          db,
		log:         baseLog.With("service", "RevisionScheduler"),
		masteryRepo: masteryRepo,
		queueRepo:   queueRepo,
	}
}

func (s *service) Generate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, asOf time.Time, p Params, prov types.Provenance) ([]*types.RevisionEntry, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("revision: generate requires a user id")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	states, err := s.masteryRepo.ListByUser(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("revision: load mastery for %s: %w", userID, err)
	}

	var entries []*types.RevisionEntry
	for _, st := range states {
		if st.AttemptsTotal < p.MinAttempts {
			continue
		}
		band := p.BandFor(st.MasteryScore)
		reason, err := json.Marshal(map[string]interface{}{
			"band":           band.Name,
			"mastery_score":  st.MasteryScore,
			"attempts_total": st.AttemptsTotal,
			"recency_factor": recencyFactor(st.LastAttemptAt, asOf),
			"spacing_days":   p.SpacingDays[band.Name],
		})
		if err != nil {
			return nil, fmt.Errorf("revision: encode reason: %w", err)
		}
		entries = append(entries, &types.RevisionEntry{
			UserID:           userID,
			ThemeID:          st.ThemeID,
			DueDate:          dueDate(asOf, band, p),
			PriorityScore:    priorityScore(st.MasteryScore, st.LastAttemptAt, st.AttemptsTotal, asOf, p),
			RecommendedCount: recommendedCount(band, st.MasteryScore, p),
			Status:           types.RevisionDue,
			Reason:           datatypes.JSON(reason),
			AlgoVersionID:    prov.AlgoVersionID,
			ParamsID:         prov.ParamsID,
			RunID:            prov.RunID,
		})
	}

	// Deterministic output order: priority descending, theme id ascending
	// on ties.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PriorityScore != entries[j].PriorityScore {
			return entries[i].PriorityScore > entries[j].PriorityScore
		}
		return entries[i].ThemeID.String() < entries[j].ThemeID.String()
	})

	if err := s.queueRepo.UpsertEntries(ctx, tx, entries); err != nil {
		return nil, fmt.Errorf("revision: upsert queue for %s: %w", userID, err)
	}
	s.log.Debug("Revision queue generated", "user_id", userID, "entries", len(entries))
	return entries, nil
}

func (s *service) ListDue(ctx context.Context, userID uuid.UUID, asOf time.Time) ([]*types.RevisionEntry, error) {
	return s.queueRepo.ListDueByUser(ctx, nil, userID, asOf)
}

func (s *service) MarkDone(ctx context.Context, entryID uuid.UUID) error {
	return s.queueRepo.UpdateStatus(ctx, nil, entryID, types.RevisionDone)
}

func (s *service) Snooze(ctx context.Context, entryID uuid.UUID) error {
	return s.queueRepo.UpdateStatus(ctx, nil, entryID, types.RevisionSnoozed)
}

func (s *service) Skip(ctx context.Context, entryID uuid.UUID) error {
	return s.queueRepo.UpdateStatus(ctx, nil, entryID, types.RevisionSkipped)
}
