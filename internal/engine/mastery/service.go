package mastery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/repos"
	"github.com/studyforge/learning-engine/internal/types"
)

type Service interface {
	// Update applies one graded attempt to the (user, theme) mastery state:
	// fetch-or-initialize at p_l0, Bayes update, learning transition,
	// persist with provenance. The caller owns the surrounding run record.
	Update(ctx context.Context, tx *gorm.DB, userID uuid.UUID, themeID uuid.UUID, isCorrect bool, at time.Time, p Params, prov types.Provenance) (*types.MasteryState, error)
	Get(ctx context.Context, userID uuid.UUID, themeID uuid.UUID) (*types.MasteryState, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*types.MasteryState, error)
	// FitTheme re-estimates the BKT parameters for one theme from the stored
	// attempt history of the given users. Batch path only.
	FitTheme(ctx context.Context, themeID uuid.UUID, userIDs []uuid.UUID, init Params) (Params, error)
}

type service struct {
	db          *gorm.DB
	log         *logger.Logger
	stateRepo   repos.MasteryStateRepo
	attemptRepo repos.AttemptRepo
}

func NewService(db *gorm.DB, baseLog *logger.Logger, stateRepo repos.MasteryStateRepo, attemptRepo repos.AttemptRepo) Service {
	return &service{
		db:          db,
		log:         baseLog.With("service", "MasteryEngine"),
		stateRepo:   stateRepo,
		attemptRepo: attemptRepo,
	}
}

func (s *service) Update(ctx context.Context, tx *gorm.DB, userID uuid.UUID, themeID uuid.UUID, isCorrect bool, at time.Time, p Params, prov types.Provenance) (*types.MasteryState, error) {
	if userID == uuid.Nil || themeID == uuid.Nil {
		return nil, fmt.Errorf("mastery: update requires user and theme ids")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	var updated *types.MasteryState
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		// Row lock serializes concurrent attempts on the same (user, theme);
		// without it two transactions read the same state and one Bayes step
		// is lost on the second upsert.
		state, err := s.stateRepo.GetForUpdate(ctx, txx, userID, themeID)
		if err != nil {
			return err
		}
		if state == nil {
			state = &types.MasteryState{
				UserID:       userID,
				ThemeID:      themeID,
				MasteryScore: p.PL0,
			}
		}

		state.MasteryScore = Next(state.MasteryScore, isCorrect, p)
		state.AttemptsTotal++
		if isCorrect {
			state.CorrectTotal++
		}
		attemptAt := at
		state.LastAttemptAt = &attemptAt
		state.AlgoVersionID = prov.AlgoVersionID
		state.ParamsID = prov.ParamsID
		state.RunID = prov.RunID

		if err := s.stateRepo.Upsert(ctx, txx, state); err != nil {
			return err
		}
		updated = state
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mastery: update %s: %w", themeID, err)
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID, themeID uuid.UUID) (*types.MasteryState, error) {
	return s.stateRepo.Get(ctx, nil, userID, themeID)
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*types.MasteryState, error) {
	return s.stateRepo.ListByUser(ctx, nil, userID)
}

func (s *service) FitTheme(ctx context.Context, themeID uuid.UUID, userIDs []uuid.UUID, init Params) (Params, error) {
	sequences := make([][]bool, 0, len(userIDs))
	for _, userID := range userIDs {
		seq, err := s.attemptRepo.OutcomesByTheme(ctx, nil, userID, themeID)
		if err != nil {
			return Params{}, fmt.Errorf("mastery: load sequences for theme %s: %w", themeID, err)
		}
		if len(seq) > 0 {
			sequences = append(sequences, seq)
		}
	}
	fitted, err := FitSequences(sequences, init)
	if err != nil {
		// Degenerate or unfittable: the caller keeps the previous active
		// parameters. Logged as a tag-quality event for operators.
		s.log.Warn("BKT fit rejected, keeping previous params",
			"event", "tag_quality", "theme_id", themeID, "error", err)
		return Params{}, err
	}
	s.log.Info("BKT fit accepted", "theme_id", themeID,
		"p_l0", fitted.PL0, "p_t", fitted.PT, "p_s", fitted.PS, "p_g", fitted.PG)
	return fitted, nil
}
