package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/studyforge/learning-engine/internal/engine"
	"github.com/studyforge/learning-engine/internal/engine/mastery"
	"github.com/studyforge/learning-engine/internal/ledger"
	"github.com/studyforge/learning-engine/internal/locks"
	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/registry"
	"github.com/studyforge/learning-engine/internal/repos"
	"github.com/studyforge/learning-engine/internal/types"
)

// Config bounds the nightly batch jobs.
type Config struct {
	// LeaseMinutes is how long a job lock holds before a crashed worker is
	// considered abandoned.
	LeaseMinutes int
	// Parallelism caps concurrent per-user work inside one batch.
	Parallelism int
	// ActiveWindowDays selects which users and themes a batch touches:
	// anyone with an attempt inside the window.
	ActiveWindowDays int
}

func (c Config) lease() time.Duration {
	if c.LeaseMinutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(c.LeaseMinutes) * time.Minute
}

func (c Config) parallelism() int {
	if c.Parallelism <= 0 {
		return 4
	}
	return c.Parallelism
}

func (c Config) window() time.Duration {
	days := c.ActiveWindowDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// Nightly owns the batch jobs: revision queue regeneration and the BKT
// parameter refit. Every job takes its lock first and releases it on the way
// out, so overlapping schedulers and manual triggers cannot double-run.
type Nightly struct {
	log         *logger.Logger
	cfg         Config
	eng         *engine.Engine
	locks       locks.Service
	registry    registry.Service
	ledger      ledger.Service
	mastery     mastery.Service
	attemptRepo repos.AttemptRepo
}

func NewNightly(baseLog *logger.Logger, cfg Config, eng *engine.Engine, lockSvc locks.Service, reg registry.Service, led ledger.Service, masterySvc mastery.Service, attemptRepo repos.AttemptRepo) *Nightly {
	return &Nightly{
		log:         baseLog.With("component", "NightlyJobs"),
		cfg:         cfg,
		eng:         eng,
		locks:       lockSvc,
		registry:    reg,
		ledger:      led,
		mastery:     masterySvc,
		attemptRepo: attemptRepo,
	}
}

// RunRevision regenerates the revision queue for every active user. Per-user
// failures log and continue; only infrastructure failures abort the batch.
func (n *Nightly) RunRevision(ctx context.Context, trigger types.RunTrigger) error {
	acquired, err := n.locks.Acquire(ctx, locks.KeyNightlyRevision, n.cfg.lease())
	if err != nil {
		return fmt.Errorf("jobs: acquire revision lock: %w", err)
	}
	if !acquired {
		n.log.Info("revision batch already running elsewhere, skipping")
		return nil
	}
	defer func() {
		if err := n.locks.Release(ctx, locks.KeyNightlyRevision); err != nil {
			n.log.Warn("failed to release revision lock", "error", err.Error())
		}
	}()

	asOf := time.Now().UTC()
	userIDs, err := n.attemptRepo.ListUserIDsSince(ctx, nil, asOf.Add(-n.cfg.window()))
	if err != nil {
		return fmt.Errorf("jobs: list active users: %w", err)
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.cfg.parallelism())
	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			if _, err := n.eng.GenerateRevisionQueue(gctx, userID, asOf, trigger); err != nil {
				failed.Add(1)
				n.log.Error("revision generation failed for user",
					"user_id", userID.String(),
					"error", err.Error())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	n.log.Info("revision batch complete",
		"users", len(userIDs),
		"failed", failed.Load())
	return nil
}

// RunBKTFit re-estimates BKT parameters per active theme from stored attempt
// history. Fitted parameters are registered as a new inactive document for
// operator review; activation stays a manual step. Degenerate fits are
// rejected inside the mastery service and simply skipped here.
func (n *Nightly) RunBKTFit(ctx context.Context, trigger types.RunTrigger) error {
	acquired, err := n.locks.Acquire(ctx, locks.KeyNightlyBKTFit, n.cfg.lease())
	if err != nil {
		return fmt.Errorf("jobs: acquire bkt fit lock: %w", err)
	}
	if !acquired {
		n.log.Info("bkt fit batch already running elsewhere, skipping")
		return nil
	}
	defer func() {
		if err := n.locks.Release(ctx, locks.KeyNightlyBKTFit); err != nil {
			n.log.Warn("failed to release bkt fit lock", "error", err.Error())
		}
	}()

	v, ap, err := n.registry.ResolveActive(ctx, types.AlgoMastery)
	if err != nil {
		n.log.Warn("no active mastery algorithm, skipping fit", "error", err.Error())
		return nil
	}
	init, err := mastery.ParseParams(ap.Params)
	if err != nil {
		return fmt.Errorf("jobs: parse mastery params: %w", err)
	}

	// The fit mutates the registry, so the whole batch runs under one ledger
	// record like every other state-mutating invocation.
	rc, err := n.ledger.StartRun(ctx, ledger.StartRunInput{
		VersionID:    v.ID,
		ParamsID:     ap.ID,
		Trigger:      trigger,
		InputSummary: map[string]interface{}{"job": "bkt_fit", "window_days": int(n.cfg.window().Hours() / 24)},
	})
	if err != nil {
		return fmt.Errorf("jobs: start fit run: %w", err)
	}

	since := time.Now().UTC().Add(-n.cfg.window())
	themeIDs, err := n.attemptRepo.ListThemeIDsSince(ctx, nil, since)
	if err != nil {
		_ = rc.Fail(ctx, err)
		return fmt.Errorf("jobs: list active themes: %w", err)
	}
	userIDs, err := n.attemptRepo.ListUserIDsSince(ctx, nil, since)
	if err != nil {
		_ = rc.Fail(ctx, err)
		return fmt.Errorf("jobs: list active users: %w", err)
	}
	if len(themeIDs) == 0 || len(userIDs) == 0 {
		n.log.Info("no recent attempts, skipping fit")
		_ = rc.Success(ctx, map[string]interface{}{"fitted": 0, "skipped": "no recent attempts"})
		return nil
	}

	type fitResult struct {
		params mastery.Params
		ok     bool
	}
	results := make([]fitResult, len(themeIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.cfg.parallelism())
	for i, themeID := range themeIDs {
		i, themeID := i, themeID
		g.Go(func() error {
			fitted, err := n.mastery.FitTheme(gctx, themeID, userIDs, init)
			if err != nil {
				n.log.Warn("theme fit skipped",
					"theme_id", themeID.String(),
					"error", err.Error())
				return nil
			}
			results[i] = fitResult{params: fitted, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_ = rc.Fail(ctx, err)
		return err
	}

	// Average the per-theme fits into one candidate document.
	var agg mastery.Params
	var fitted int
	for _, r := range results {
		if !r.ok {
			continue
		}
		agg.PL0 += r.params.PL0
		agg.PT += r.params.PT
		agg.PS += r.params.PS
		agg.PG += r.params.PG
		fitted++
	}
	if fitted == 0 {
		n.log.Info("no theme produced a usable fit")
		_ = rc.Success(ctx, map[string]interface{}{"fitted": 0, "skipped": "no usable fit"})
		return nil
	}
	agg.PL0 /= float64(fitted)
	agg.PT /= float64(fitted)
	agg.PS /= float64(fitted)
	agg.PG /= float64(fitted)
	agg.Fit = init.Fit

	doc, err := json.Marshal(agg)
	if err != nil {
		_ = rc.Fail(ctx, err)
		return fmt.Errorf("jobs: encode fitted params: %w", err)
	}
	label := fmt.Sprintf("nightly-fit-%s", time.Now().UTC().Format("2006-01-02"))
	candidate, err := n.registry.RegisterParams(ctx, types.AlgoMastery, v.Version, doc, label)
	if err != nil {
		_ = rc.Fail(ctx, err)
		return fmt.Errorf("jobs: register fitted params: %w", err)
	}

	if err := rc.Success(ctx, map[string]interface{}{
		"themes":              len(themeIDs),
		"fitted":              fitted,
		"label":               label,
		"candidate_params_id": candidate.ID.String(),
	}); err != nil {
		n.log.Warn("failed to close fit run", "error", err.Error())
	}

	n.log.Info("bkt fit batch complete",
		"themes", len(themeIDs),
		"fitted", fitted,
		"label", label)
	return nil
}
