package difficulty

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/repos"
	"github.com/studyforge/learning-engine/internal/types"
)

type Service interface {
	// Update applies one graded attempt to the question's rating. The row is
	// locked for the duration of the transaction, so concurrent attempts
	// against the same question from different users serialize.
	Update(ctx context.Context, tx *gorm.DB, questionID uuid.UUID, cohort string, isCorrect bool, studentMastery float64, p Params, prov types.Provenance) (*types.DifficultyState, error)
	Get(ctx context.Context, questionID uuid.UUID, cohort string) (*types.DifficultyState, error)
	RatingsFor(ctx context.Context, questionIDs []uuid.UUID, cohort string, p Params) (map[uuid.UUID]float64, error)
}

type service struct {
	db        *gorm.DB
	log       *logger.Logger
	stateRepo repos.DifficultyStateRepo
}

func NewService(db *gorm.DB, baseLog *logger.Logger, stateRepo repos.DifficultyStateRepo) Service {
	return &service{
		db:        db,
		log:       baseLog.With("service", "DifficultyEngine"),
		stateRepo: stateRepo,
	}
}

func (s *service) Update(ctx context.Context, tx *gorm.DB, questionID uuid.UUID, cohort string, isCorrect bool, studentMastery float64, p Params, prov types.Provenance) (*types.DifficultyState, error) {
	if questionID == uuid.Nil {
		return nil, fmt.Errorf("difficulty: update requires a question id")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	var updated *types.DifficultyState
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		state, err := s.stateRepo.GetForUpdate(ctx, txx, questionID, cohort)
		if err != nil {
			return err
		}
		if state == nil {
			state = &types.DifficultyState{
				QuestionID: questionID,
				Cohort:     cohort,
				Rating:     p.BaselineRating,
			}
		}

		ratingStudent := StudentRatingFromMastery(studentMastery, p.MasteryRatingMap.Min, p.MasteryRatingMap.Max)
		expectedStudent := Expected(ratingStudent, state.Rating, p.Scale)
		expectedItem := 1 - expectedStudent
		outcomeItem := 1.0
		if isCorrect {
			outcomeItem = 0.0
		}
		state.Rating = UpdateRating(state.Rating, p.KFactor, outcomeItem, expectedItem)

		state.Attempts++
		if isCorrect {
			state.Correct++
		}
		// Cached success probability for the mapped-average student, from
		// the same logistic the update uses.
		state.PCorrectCached = Expected(ratingStudent, state.Rating, p.Scale)
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
		return nil, fmt.Errorf("difficulty: update %s: %w", questionID, err)
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, questionID uuid.UUID, cohort string) (*types.DifficultyState, error) {
	return s.stateRepo.Get(ctx, nil, questionID, cohort)
}

// RatingsFor returns the current rating per question, falling back to the
// baseline for questions with no recorded attempts yet.
func (s *service) RatingsFor(ctx context.Context, questionIDs []uuid.UUID, cohort string, p Params) (map[uuid.UUID]float64, error) {
	out := make(map[uuid.UUID]float64, len(questionIDs))
	for _, id := range questionIDs {
		out[id] = p.BaselineRating
	}
	states, err := s.stateRepo.ListByQuestionIDs(ctx, nil, questionIDs, cohort)
	if err != nil {
		return nil, fmt.Errorf("difficulty: load ratings: %w", err)
	}
	for _, st := range states {
		out[st.QuestionID] = st.Rating
	}
	return out, nil
}
