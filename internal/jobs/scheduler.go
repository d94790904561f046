package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/types"
)

// Scheduler fires the nightly batches at a fixed UTC time. Both jobs guard
// themselves with job locks, so multiple instances can run the scheduler.
type Scheduler struct {
	log       *logger.Logger
	scheduler *gocron.Scheduler
	nightly   *Nightly
}

func NewScheduler(baseLog *logger.Logger, nightly *Nightly) *Scheduler {
	return &Scheduler{
		log:       baseLog.With("component", "Scheduler"),
		scheduler: gocron.NewScheduler(time.UTC),
		nightly:   nightly,
	}
}

// Start registers the nightly jobs at the given "HH:MM" time and runs the
// scheduler asynchronously.
func (s *Scheduler) Start(at string) error {
	if _, err := s.scheduler.Every(1).Day().At(at).Do(func() {
		ctx := context.Background()
		if err := s.nightly.RunRevision(ctx, types.TriggerNightly); err != nil {
			s.log.Error("nightly revision batch failed", "error", err.Error())
		}
		if err := s.nightly.RunBKTFit(ctx, types.TriggerNightly); err != nil {
			s.log.Error("nightly bkt fit batch failed", "error", err.Error())
		}
	}); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.log.Info("nightly scheduler started", "at", at)
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
