package app

import (
	"gorm.io/gorm"

	"github.com/studyforge/learning-engine/internal/engine"
	"github.com/studyforge/learning-engine/internal/engine/adaptive"
	"github.com/studyforge/learning-engine/internal/engine/difficulty"
	"github.com/studyforge/learning-engine/internal/engine/mastery"
	"github.com/studyforge/learning-engine/internal/engine/mistakes"
	"github.com/studyforge/learning-engine/internal/engine/revision"
	"github.com/studyforge/learning-engine/internal/jobs"
	"github.com/studyforge/learning-engine/internal/ledger"
	"github.com/studyforge/learning-engine/internal/locks"
	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/registry"
)

type Services struct {
	Registry   registry.Service
	Ledger     ledger.Service
	Locks      locks.Service
	Mastery    mastery.Service
	Difficulty difficulty.Service
	Revision   revision.Service
	Adaptive   adaptive.Service
	Mistakes   mistakes.Service
	Engine     *engine.Engine
	Nightly    *jobs.Nightly
	Worker     *jobs.Worker
	Scheduler  *jobs.Scheduler
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos) (Services, error) {
	log.Info("Wiring services...")

	var lockSvc locks.Service
	if cfg.LockBackend == "redis" {
		redisLock, err := locks.NewRedisLock(log)
		if err != nil {
			return Services{}, err
		}
		lockSvc = redisLock
	} else {
		lockSvc = locks.NewGormLock(db, log, r.JobLock)
	}

	reg := registry.NewService(db, log, r.AlgoVersion, r.AlgoParams)
	led := ledger.NewService(db, log, r.AlgoRun)
	masterySvc := mastery.NewService(db, log, r.MasteryState, r.Attempt)
	diffSvc := difficulty.NewService(db, log, r.DifficultyState)
	revisionSvc := revision.NewService(db, log, r.MasteryState, r.RevisionQueue)
	adaptiveSvc := adaptive.NewService(db, log, r.Attempt, r.MasteryState, r.BanditArm, diffSvc)
	mistakesSvc := mistakes.NewService(db, log, r.Mistake)

	eng := engine.New(engine.Deps{
		DB:          db,
		Log:         log,
		Registry:    reg,
		Ledger:      led,
		Locks:       lockSvc,
		Mastery:     masterySvc,
		Difficulty:  diffSvc,
		Revision:    revisionSvc,
		Adaptive:    adaptiveSvc,
		Mistakes:    mistakesSvc,
		AttemptRepo: r.Attempt,
		MasteryRepo: r.MasteryState,
		BanditRepo:  r.BanditArm,
	})

	nightly := jobs.NewNightly(log, jobs.Config{
		LeaseMinutes:     cfg.LeaseMinutes,
		Parallelism:      cfg.Parallelism,
		ActiveWindowDays: cfg.ActiveWindowDays,
	}, eng, lockSvc, reg, led, masterySvc, r.Attempt)
	worker := jobs.NewWorker(db, log, r.QueuedJob, eng, nightly)
	scheduler := jobs.NewScheduler(log, nightly)

	return Services{
		Registry:   reg,
		Ledger:     led,
		Locks:      lockSvc,
		Mastery:    masterySvc,
		Difficulty: diffSvc,
		Revision:   revisionSvc,
		Adaptive:   adaptiveSvc,
		Mistakes:   mistakesSvc,
		Engine:     eng,
		Nightly:    nightly,
		Worker:     worker,
		Scheduler:  scheduler,
	}, nil
}
