// Package engine exposes the learning intelligence operations as plain
// service calls. The facade resolves the active algorithm configuration,
// wraps every state-mutating leg in exactly one run record, and degrades
// configuration failures to empty results so callers never surface raw
// internals to students.
package engine

import (
	"context"
	"errors"
	"fmt"
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
	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/registry"
	"github.com/studyforge/learning-engine/internal/repos"
	"github.com/studyforge/learning-engine/internal/types"
)

// AttemptOutcome is the fact the session subsystem hands over per graded
// attempt. The engine trusts the shape; authentication happened upstream.
type AttemptOutcome struct {
	UserID             uuid.UUID
	QuestionID         uuid.UUID
	ThemeID            uuid.UUID
	SessionID          *uuid.UUID
	Cohort             string
	IsCorrect          bool
	ResponseTimeSec    float64
	ChangedAnswerCount int
	BlurCount          int
	RemainingTimeSec   float64
	OccurredAt         time.Time
}

// Deps carries the wired services the facade orchestrates.
type Deps struct {
	DB          *gorm.DB
	Log         *logger.Logger
	Registry    registry.Service
	Ledger      ledger.Service
	Locks       locks.Service
	Mastery     mastery.Service
	Difficulty  difficulty.Service
	Revision    revision.Service
	Adaptive    adaptive.Service
	Mistakes    mistakes.Service
	AttemptRepo repos.AttemptRepo
	MasteryRepo repos.MasteryStateRepo
	BanditRepo  repos.BanditArmRepo
}

type Engine struct {
	db          *gorm.DB
	log         *logger.Logger
	registry    registry.Service
	ledger      ledger.Service
	locks       locks.Service
	mastery     mastery.Service
	difficulty  difficulty.Service
	revision    revision.Service
	adaptive    adaptive.Service
	mistakes    mistakes.Service
	attemptRepo repos.AttemptRepo
	masteryRepo repos.MasteryStateRepo
	banditRepo  repos.BanditArmRepo
}

func New(d Deps) *Engine {
	return &Engine{
		db:          d.DB,
		log:         d.Log.With("service", "Engine"),
		registry:    d.Registry,
		ledger:      d.Ledger,
		locks:       d.Locks,
		mastery:     d.Mastery,
		difficulty:  d.Difficulty,
		revision:    d.Revision,
		adaptive:    d.Adaptive,
		mistakes:    d.Mistakes,
		attemptRepo: d.AttemptRepo,
		masteryRepo: d.MasteryRepo,
		banditRepo:  d.BanditRepo,
	}
}

// ResolveActive returns the active version and parameter document for one
// algorithm family.
func (e *Engine) ResolveActive(ctx context.Context, key types.AlgoKey) (*types.AlgoVersion, *types.AlgoParams, error) {
	return e.registry.ResolveActive(ctx, key)
}

// AcquireJobLock takes the named lease, returning false without blocking
// when another holder has it.
func (e *Engine) AcquireJobLock(ctx context.Context, jobKey string, lease time.Duration) (bool, error) {
	return e.locks.Acquire(ctx, jobKey, lease)
}

func (e *Engine) ReleaseJobLock(ctx context.Context, jobKey string) error {
	return e.locks.Release(ctx, jobKey)
}

// startRun opens the ledger record for one state-mutating leg.
func (e *Engine) startRun(ctx context.Context, v *types.AlgoVersion, p *types.AlgoParams, userID *uuid.UUID, sessionID *uuid.UUID, trigger types.RunTrigger, input map[string]interface{}) (*ledger.RunContext, types.Provenance, error) {
	rc, err := e.ledger.StartRun(ctx, ledger.StartRunInput{
		VersionID:    v.ID,
		ParamsID:     p.ID,
		UserID:       userID,
		SessionID:    sessionID,
		Trigger:      trigger,
		InputSummary: input,
	})
	if err != nil {
		return nil, types.Provenance{}, err
	}
	prov := types.Provenance{AlgoVersionID: v.ID, ParamsID: p.ID, RunID: rc.RunID()}
	return rc, prov, nil
}

// UpdateMastery applies one graded attempt to the user's theme mastery under
// a run record.
func (e *Engine) UpdateMastery(ctx context.Context, userID uuid.UUID, themeID uuid.UUID, isCorrect bool, at time.Time, trigger types.RunTrigger) (*types.MasteryState, error) {
	v, ap, err := e.registry.ResolveActive(ctx, types.AlgoMastery)
	if err != nil {
		return nil, fmt.Errorf("engine: resolve mastery config: %w", err)
	}
	p, err := mastery.ParseParams(ap.Params)
	if err != nil {
		return nil, err
	}
	rc, prov, err := e.startRun(ctx, v, ap, &userID, nil, trigger, map[string]interface{}{
		"user_id":    userID.String(),
		"theme_id":   themeID.String(),
		"is_correct": isCorrect,
	})
	if err != nil {
		return nil, err
	}

	state, err := e.mastery.Update(ctx, nil, userID, themeID, isCorrect, at, p, prov)
	if err != nil {
		_ = rc.Fail(ctx, err)
		return nil, err
	}
	_ = rc.Success(ctx, map[string]interface{}{"mastery_score": state.MasteryScore})
	return state, nil
}

// UpdateDifficulty applies one graded attempt to the question's Elo-lite
// rating. Student mastery for the theme feeds the opponent-side rating; an
// unseen theme contributes the configured minimum.
func (e *Engine) UpdateDifficulty(ctx context.Context, userID uuid.UUID, questionID uuid.UUID, themeID uuid.UUID, cohort string, isCorrect bool, trigger types.RunTrigger) (*types.DifficultyState, error) {
	v, ap, err := e.registry.ResolveActive(ctx, types.AlgoDifficulty)
	if err != nil {
		return nil, fmt.Errorf("engine: resolve difficulty config: %w", err)
	}
	p, err := difficulty.ParseParams(ap.Params)
	if err != nil {
		return nil, err
	}

	var studentMastery float64
	if st, err := e.masteryRepo.Get(ctx, nil, userID, themeID); err == nil && st != nil {
		studentMastery = st.MasteryScore
	}

	rc, prov, err := e.startRun(ctx, v, ap, &userID, nil, trigger, map[string]interface{}{
		"question_id": questionID.String(),
		"cohort":      cohort,
		"is_correct":  isCorrect,
	})
	if err != nil {
		return nil, err
	}

	state, err := e.difficulty.Update(ctx, nil, questionID, cohort, isCorrect, studentMastery, p, prov)
	if err != nil {
		_ = rc.Fail(ctx, err)
		return nil, err
	}
	_ = rc.Success(ctx, map[string]interface{}{"rating": state.Rating})
	return state, nil
}

// GenerateRevisionQueue rebuilds the user's queue. A missing or invalid
// configuration degrades to an empty queue; the failure is visible only to
// operators through logs and the ledger.
func (e *Engine) GenerateRevisionQueue(ctx context.Context, userID uuid.UUID, asOf time.Time, trigger types.RunTrigger) ([]*types.RevisionEntry, error) {
	v, ap, err := e.registry.ResolveActive(ctx, types.AlgoRevision)
	if err != nil {
		if errors.Is(err, registry.ErrNoActiveAlgorithm) {
			e.log.Warn("no active revision algorithm, skipping generation", "user_id", userID.String())
			return []*types.RevisionEntry{}, nil
		}
		return nil, fmt.Errorf("engine: resolve revision config: %w", err)
	}
	p, err := revision.ParseParams(ap.Params)
	if err != nil {
		e.log.Error("revision params unusable, skipping generation", "error", err.Error())
		return []*types.RevisionEntry{}, nil
	}

	rc, prov, err := e.startRun(ctx, v, ap, &userID, nil, trigger, map[string]interface{}{
		"user_id": userID.String(),
	})
	if err != nil {
		return nil, err
	}

	entries, err := e.revision.Generate(ctx, nil, userID, asOf, p, prov)
	if err != nil {
		_ = rc.Fail(ctx, err)
		return nil, err
	}
	_ = rc.Success(ctx, map[string]interface{}{"entries": len(entries)})
	return entries, nil
}

// SelectAdaptiveQuestions picks up to count questions from the caller's
// eligible pool. Missing configuration degrades to an empty selection.
func (e *Engine) SelectAdaptiveQuestions(ctx context.Context, userID uuid.UUID, cohort string, pool []adaptive.PoolItem, count int, asOf time.Time, trigger types.RunTrigger) (*adaptive.Selection, error) {
	v, ap, err := e.registry.ResolveActive(ctx, types.AlgoAdaptive)
	if err != nil {
		if errors.Is(err, registry.ErrNoActiveAlgorithm) {
			e.log.Warn("no active adaptive algorithm, returning empty selection", "user_id", userID.String())
			return &adaptive.Selection{Requested: count, Shortfall: count > 0}, nil
		}
		return nil, fmt.Errorf("engine: resolve adaptive config: %w", err)
	}
	p, err := adaptive.ParseParams(ap.Params)
	if err != nil {
		e.log.Error("adaptive params unusable, returning empty selection", "error", err.Error())
		return &adaptive.Selection{Requested: count, Shortfall: count > 0}, nil
	}
	dp, err := e.difficultyParams(ctx)
	if err != nil {
		return nil, err
	}

	rc, prov, err := e.startRun(ctx, v, ap, &userID, nil, trigger, map[string]interface{}{
		"user_id":   userID.String(),
		"pool_size": len(pool),
		"count":     count,
	})
	if err != nil {
		return nil, err
	}

	sel, err := e.adaptive.Select(ctx, adaptive.Request{
		UserID:  userID,
		Cohort:  cohort,
		Count:   count,
		Pool:    pool,
		Version: v.Version,
		AsOf:    asOf,
	}, p, dp, prov)
	if err != nil {
		_ = rc.Fail(ctx, err)
		return nil, err
	}
	_ = rc.Success(ctx, map[string]interface{}{
		"selected":  len(sel.QuestionIDs),
		"shortfall": sel.Shortfall,
	})
	return sel, nil
}

// difficultyParams resolves the active Elo configuration for read paths that
// need ratings, falling back to defaults when no version is active.
func (e *Engine) difficultyParams(ctx context.Context) (difficulty.Params, error) {
	_, ap, err := e.registry.ResolveActive(ctx, types.AlgoDifficulty)
	if err != nil {
		if errors.Is(err, registry.ErrNoActiveAlgorithm) {
			return difficulty.Params{
				BaselineRating:   1000,
				KFactor:          16,
				Scale:            400,
				MasteryRatingMap: difficulty.MasteryRatingMap{Min: 800, Max: 1400},
			}, nil
		}
		return difficulty.Params{}, fmt.Errorf("engine: resolve difficulty config: %w", err)
	}
	return difficulty.ParseParams(ap.Params)
}

// ClassifyMistake categorizes one persisted wrong attempt under a run
// record. Correct attempts return (nil, nil) without opening a run.
func (e *Engine) ClassifyMistake(ctx context.Context, attempt *types.Attempt, trigger types.RunTrigger) (*types.MistakeClassification, error) {
	if attempt != nil && attempt.IsCorrect {
		return nil, nil
	}
	v, ap, err := e.registry.ResolveActive(ctx, types.AlgoMistakes)
	if err != nil {
		return nil, fmt.Errorf("engine: resolve mistakes config: %w", err)
	}
	p, err := mistakes.ParseParams(ap.Params)
	if err != nil {
		return nil, err
	}

	rc, prov, err := e.startRun(ctx, v, ap, &attempt.UserID, attempt.SessionID, trigger, map[string]interface{}{
		"attempt_id": attempt.ID.String(),
	})
	if err != nil {
		return nil, err
	}

	cls, err := e.mistakes.Classify(ctx, nil, attempt, v.Version, p, prov)
	if err != nil {
		_ = rc.Fail(ctx, err)
		return nil, err
	}
	out := map[string]interface{}{}
	if cls != nil {
		out["mistake_type"] = cls.MistakeType
		out["source"] = cls.Source
	}
	_ = rc.Success(ctx, out)
	return cls, nil
}

// IngestAttempt runs the full per-attempt pipeline: persist the attempt
// fact, classify the mistake when wrong, update mastery and difficulty, and
// settle any pending bandit reward. Legs fail independently; the combined
// error reports every failed leg while the rest of the pipeline still ran.
func (e *Engine) IngestAttempt(ctx context.Context, in AttemptOutcome, trigger types.RunTrigger) (*types.Attempt, error) {
	if in.UserID == uuid.Nil || in.QuestionID == uuid.Nil || in.ThemeID == uuid.Nil {
		return nil, fmt.Errorf("engine: attempt outcome requires user, question and theme ids")
	}
	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	attempt, err := e.attemptRepo.Create(ctx, nil, &types.Attempt{
		ID:                 uuid.New(),
		UserID:             in.UserID,
		QuestionID:         in.QuestionID,
		ThemeID:            in.ThemeID,
		SessionID:          in.SessionID,
		IsCorrect:          in.IsCorrect,
		ResponseTimeSec:    in.ResponseTimeSec,
		ChangedAnswerCount: in.ChangedAnswerCount,
		BlurCount:          in.BlurCount,
		RemainingTimeSec:   in.RemainingTimeSec,
		OccurredAt:         occurredAt,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: persist attempt: %w", err)
	}

	var legErrs []error
	if !attempt.IsCorrect {
		if _, err := e.ClassifyMistake(ctx, attempt, trigger); err != nil {
			e.log.Error("mistake classification failed", "attempt_id", attempt.ID.String(), "error", err.Error())
			legErrs = append(legErrs, err)
		}
	}
	if _, err := e.UpdateMastery(ctx, in.UserID, in.ThemeID, in.IsCorrect, occurredAt, trigger); err != nil {
		e.log.Error("mastery update failed", "attempt_id", attempt.ID.String(), "error", err.Error())
		legErrs = append(legErrs, err)
	}
	if _, err := e.UpdateDifficulty(ctx, in.UserID, in.QuestionID, in.ThemeID, in.Cohort, in.IsCorrect, trigger); err != nil {
		e.log.Error("difficulty update failed", "attempt_id", attempt.ID.String(), "error", err.Error())
		legErrs = append(legErrs, err)
	}
	if err := e.settleBanditReward(ctx, attempt); err != nil {
		e.log.Error("bandit reward settlement failed", "attempt_id", attempt.ID.String(), "error", err.Error())
		legErrs = append(legErrs, err)
	}

	return attempt, errors.Join(legErrs...)
}

// settleBanditReward credits the theme arm when this attempt is the first
// answer to the question after the theme was last served by the selector.
// Later attempts on the same question do not move the arm.
func (e *Engine) settleBanditReward(ctx context.Context, attempt *types.Attempt) error {
	arms, err := e.banditRepo.ListByUser(ctx, nil, attempt.UserID)
	if err != nil {
		return err
	}
	for _, arm := range arms {
		if arm.ThemeID != attempt.ThemeID || arm.LastSelectedAt == nil {
			continue
		}
		first, err := e.attemptRepo.FirstOutcomeAfter(ctx, nil, attempt.UserID, attempt.QuestionID, *arm.LastSelectedAt)
		if err != nil {
			return err
		}
		if first == nil || first.ID != attempt.ID {
			return nil
		}
		return e.banditRepo.RecordReward(ctx, nil, attempt.UserID, attempt.ThemeID, attempt.IsCorrect)
	}
	return nil
}
