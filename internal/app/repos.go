package app

import (
	"gorm.io/gorm"

	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/repos"
)

type Repos struct {
	AlgoVersion     repos.AlgoVersionRepo
	AlgoParams      repos.AlgoParamsRepo
	AlgoRun         repos.AlgoRunRepo
	Attempt         repos.AttemptRepo
	MasteryState    repos.MasteryStateRepo
	DifficultyState repos.DifficultyStateRepo
	RevisionQueue   repos.RevisionQueueRepo
	Mistake         repos.MistakeRepo
	BanditArm       repos.BanditArmRepo
	JobLock         repos.JobLockRepo
	QueuedJob       repos.QueuedJobRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		AlgoVersion:     repos.NewAlgoVersionRepo(db, log),
		AlgoParams:      repos.NewAlgoParamsRepo(db, log),
		AlgoRun:         repos.NewAlgoRunRepo(db, log),
		Attempt:         repos.NewAttemptRepo(db, log),
		MasteryState:    repos.NewMasteryStateRepo(db, log),
		DifficultyState: repos.NewDifficultyStateRepo(db, log),
		RevisionQueue:   repos.NewRevisionQueueRepo(db, log),
		Mistake:         repos.NewMistakeRepo(db, log),
		BanditArm:       repos.NewBanditArmRepo(db, log),
		JobLock:         repos.NewJobLockRepo(db, log),
		QueuedJob:       repos.NewQueuedJobRepo(db, log),
	}
}
