package adaptive

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyforge/learning-engine/internal/engine/difficulty"
	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/repos"
	"github.com/studyforge/learning-engine/internal/types"
)

// PoolItem is one eligible question offered to the selector. The caller owns
// eligibility (exam scope, published state); the selector owns ranking,
// anti-repeat and mix constraints.
type PoolItem struct {
	QuestionID uuid.UUID
	ThemeID    uuid.UUID
}

// Request is one selection call.
type Request struct {
	UserID uuid.UUID
	Cohort string
	Count  int
	Pool   []PoolItem
	// Version is the active algorithm version string. Versions with a "v1"
	// prefix use Thompson sampling over theme arms; everything else uses the
	// deterministic greedy ranker.
	Version string
	AsOf    time.Time
}

type Service interface {
	Select(ctx context.Context, req Request, p Params, dp difficulty.Params, prov types.Provenance) (*Selection, error)
	// RecordReward settles the bandit arm for one earlier selection. Rewarded
	// means the first attempt on the question after selection was correct.
	RecordReward(ctx context.Context, tx *gorm.DB, userID uuid.UUID, themeID uuid.UUID, rewarded bool) error
}

type service struct {
	db          *gorm.DB
	log         *logger.Logger
	attemptRepo repos.AttemptRepo
	masteryRepo repos.MasteryStateRepo
	banditRepo  repos.BanditArmRepo
	diffSvc     difficulty.Service

	// rand.Rand is not safe for concurrent use; rngMu serializes the Thompson
	// draws across concurrent Select calls.
	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewService(db *gorm.DB, baseLog *logger.Logger, attemptRepo repos.AttemptRepo, masteryRepo repos.MasteryStateRepo, banditRepo repos.BanditArmRepo, diffSvc difficulty.Service) Service {
	return &service{
		db:          db,
		log:         baseLog.With("service", "AdaptiveSelector"),
		attemptRepo: attemptRepo,
		masteryRepo: masteryRepo,
		banditRepo:  banditRepo,
		diffSvc:     diffSvc,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *service) Select(ctx context.Context, req Request, p Params, dp difficulty.Params, prov types.Provenance) (*Selection, error) {
	if req.UserID == uuid.Nil {
		return nil, fmt.Errorf("adaptive: select requires a user id")
	}
	if req.Count <= 0 {
		return nil, fmt.Errorf("adaptive: select requires count > 0, got %d", req.Count)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	since := asOf.AddDate(0, 0, -p.AntiRepeatDays)
	recent, err := s.attemptRepo.RecentQuestionIDs(ctx, nil, req.UserID, since)
	if err != nil {
		return nil, fmt.Errorf("adaptive: load recent attempts: %w", err)
	}
	exclude := make(map[uuid.UUID]bool, len(recent))
	for _, id := range recent {
		exclude[id] = true
	}

	states, err := s.masteryRepo.ListByUser(ctx, nil, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("adaptive: load mastery states: %w", err)
	}
	masteryByTheme := make(map[uuid.UUID]float64, len(states))
	for _, st := range states {
		masteryByTheme[st.ThemeID] = st.MasteryScore
	}

	questionIDs := make([]uuid.UUID, 0, len(req.Pool))
	for _, item := range req.Pool {
		questionIDs = append(questionIDs, item.QuestionID)
	}
	ratings, err := s.diffSvc.RatingsFor(ctx, questionIDs, req.Cohort, dp)
	if err != nil {
		return nil, fmt.Errorf("adaptive: load question ratings: %w", err)
	}

	pool := make([]Candidate, 0, len(req.Pool))
	for _, item := range req.Pool {
		pool = append(pool, Candidate{
			QuestionID: item.QuestionID,
			ThemeID:    item.ThemeID,
			Rating:     ratings[item.QuestionID],
		})
	}

	in := rankInput{
		pool:            pool,
		masteryByTheme:  masteryByTheme,
		excludeQuestion: exclude,
		targetRating:    s.targetRating(masteryByTheme, dp),
		asOf:            asOf,
	}

	var sel Selection
	if useThompson(req.Version) {
		arms, err := s.loadArms(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		s.rngMu.Lock()
		sel = rankThompson(s.rng, in, p, req.Count, arms)
		s.rngMu.Unlock()
		if err := s.settleSelections(ctx, req.UserID, pool, sel, asOf); err != nil {
			return nil, err
		}
	} else {
		sel = rankGreedy(in, p, req.Count)
	}

	if sel.Shortfall {
		s.log.Warn("adaptive selection short of request",
			"user_id", req.UserID.String(),
			"requested", req.Count,
			"selected", len(sel.QuestionIDs))
	}
	return &sel, nil
}

func (s *service) RecordReward(ctx context.Context, tx *gorm.DB, userID uuid.UUID, themeID uuid.UUID, rewarded bool) error {
	return s.banditRepo.RecordReward(ctx, tx, userID, themeID, rewarded)
}

// targetRating maps the user's mean mastery onto the rating scale. A user
// with no mastery rows targets the bottom of the configured interval.
func (s *service) targetRating(masteryByTheme map[uuid.UUID]float64, dp difficulty.Params) float64 {
	if len(masteryByTheme) == 0 {
		return difficulty.StudentRatingFromMastery(0, dp.MasteryRatingMap.Min, dp.MasteryRatingMap.Max)
	}
	var sum float64
	for _, m := range masteryByTheme {
		sum += m
	}
	mean := sum / float64(len(masteryByTheme))
	return difficulty.StudentRatingFromMastery(mean, dp.MasteryRatingMap.Min, dp.MasteryRatingMap.Max)
}

func (s *service) loadArms(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]armState, error) {
	rows, err := s.banditRepo.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("adaptive: load bandit arms: %w", err)
	}
	arms := make(map[uuid.UUID]armState, len(rows))
	for _, a := range rows {
		arms[a.ThemeID] = armState{ThemeID: a.ThemeID, Alpha: a.Alpha, Beta: a.Beta}
	}
	return arms, nil
}

// settleSelections bumps the pull counter once per distinct theme in the
// selection, so arms keep pace with what the user was actually shown.
func (s *service) settleSelections(ctx context.Context, userID uuid.UUID, pool []Candidate, sel Selection, at time.Time) error {
	themeOf := make(map[uuid.UUID]uuid.UUID, len(pool))
	for _, c := range pool {
		themeOf[c.QuestionID] = c.ThemeID
	}
	seen := map[uuid.UUID]bool{}
	for _, qid := range sel.QuestionIDs {
		themeID := themeOf[qid]
		if seen[themeID] {
			continue
		}
		seen[themeID] = true
		if err := s.banditRepo.RecordSelection(ctx, nil, userID, themeID, at); err != nil {
			return fmt.Errorf("adaptive: record selection: %w", err)
		}
	}
	return nil
}

func useThompson(version string) bool {
	return strings.HasPrefix(version, "v1")
}
