package mistakes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/repos"
	"github.com/studyforge/learning-engine/internal/types"
)

type Service interface {
	// Classify categorizes one graded attempt. Correct attempts return
	// (nil, nil); wrong attempts get exactly one immutable classification.
	// Version strings with a "v1" prefix use the calibrated model when the
	// params carry one, falling back to the rule cascade below the
	// confidence floor.
	Classify(ctx context.Context, tx *gorm.DB, attempt *types.Attempt, version string, p Params, prov types.Provenance) (*types.MistakeClassification, error)
	CountByType(ctx context.Context, userID uuid.UUID) (map[string]int64, error)
}

type service struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.MistakeRepo
}

func NewService(db *gorm.DB, baseLog *logger.Logger, repo repos.MistakeRepo) Service {
	return &service{
		db:   db,
		log:  baseLog.With("service", "MistakeClassifier"),
		repo: repo,
	}
}

type evidence struct {
	Features    Features           `json:"features"`
	MatchedRule string             `json:"matched_rule,omitempty"`
	Probs       map[string]float64 `json:"probabilities,omitempty"`
	FellBack    bool               `json:"fell_back,omitempty"`
}

func (s *service) Classify(ctx context.Context, tx *gorm.DB, attempt *types.Attempt, version string, p Params, prov types.Provenance) (*types.MistakeClassification, error) {
	if attempt == nil || attempt.ID == uuid.Nil {
		return nil, fmt.Errorf("mistakes: classify requires a persisted attempt")
	}
	if attempt.IsCorrect {
		return nil, nil
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	f := FeaturesFromAttempt(attempt)
	ev := evidence{Features: f}
	source := types.MistakeSourceRuleV0
	var (
		mistakeType string
		confidence  float64
	)

	if useModel(version) && p.Model != nil {
		mt, conf, probs := scoreModel(f, p.Model)
		if conf >= p.Model.MinConfidence {
			mistakeType, confidence = mt, conf
			source = types.MistakeSourceModelV1
			ev.Probs = probs
		} else {
			s.log.Info("model confidence below floor, using rule cascade",
				"attempt_id", attempt.ID.String(),
				"confidence", conf,
				"min_confidence", p.Model.MinConfidence)
			ev.FellBack = true
		}
	} else if useModel(version) {
		s.log.Warn("v1 requested but params carry no model, using rule cascade",
			"attempt_id", attempt.ID.String())
		ev.FellBack = true
	}

	if source == types.MistakeSourceRuleV0 {
		mt, rule := classifyRules(f, p)
		mistakeType = mt
		confidence = 1.0
		ev.MatchedRule = rule
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("mistakes: marshal evidence: %w", err)
	}

	created, err := s.repo.Create(ctx, tx, &types.MistakeClassification{
		ID:            uuid.New(),
		AttemptID:     attempt.ID,
		UserID:        attempt.UserID,
		MistakeType:   mistakeType,
		Severity:      p.SeverityFor(mistakeType),
		Confidence:    confidence,
		Evidence:      datatypes.JSON(raw),
		Source:        source,
		AlgoVersionID: prov.AlgoVersionID,
		ParamsID:      prov.ParamsID,
		RunID:         prov.RunID,
	})
	if err != nil {
		return nil, fmt.Errorf("mistakes: persist classification: %w", err)
	}
	return created, nil
}

func (s *service) CountByType(ctx context.Context, userID uuid.UUID) (map[string]int64, error) {
	return s.repo.CountByType(ctx, nil, userID)
}

func useModel(version string) bool {
	return strings.HasPrefix(version, "v1")
}
