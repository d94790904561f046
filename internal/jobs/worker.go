package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyforge/learning-engine/internal/engine"
	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/repos"
	"github.com/studyforge/learning-engine/internal/types"
)

// Handler executes one claimed job. Returning an error marks the job failed
// and eligible for retry under the claim policy.
type Handler func(ctx context.Context, job *types.QueuedJob) error

// RevisionJobPayload targets one user's on-demand queue rebuild.
type RevisionJobPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

// Worker drains the queued_job table: claim, dispatch, mark terminal. A
// panicking handler marks the job failed instead of killing the loop.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.QueuedJobRepo
	handlers map[string]Handler
	policy   repos.ClaimPolicy
	interval time.Duration
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.QueuedJobRepo, eng *engine.Engine, nightly *Nightly) *Worker {
	w := &Worker{
		db:   db,
		log:  baseLog.With("component", "JobWorker"),
		repo: repo,
		policy: repos.ClaimPolicy{
			MaxAttempts:  5,
			RetryDelay:   30 * time.Second,
			StaleRunning: 2 * time.Minute,
		},
		interval: time.Second,
		handlers: map[string]Handler{},
	}
	w.handlers[types.JobTypeRevisionGenerate] = func(ctx context.Context, job *types.QueuedJob) error {
		var p RevisionJobPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("jobs: decode revision payload: %w", err)
		}
		if p.UserID == uuid.Nil {
			return fmt.Errorf("jobs: revision payload missing user_id")
		}
		_, err := eng.GenerateRevisionQueue(ctx, p.UserID, time.Now().UTC(), types.TriggerAPI)
		return err
	}
	w.handlers[types.JobTypeBKTFit] = func(ctx context.Context, job *types.QueuedJob) error {
		return nightly.RunBKTFit(ctx, types.TriggerAPI)
	}
	return w
}

// Enqueue queues an on-demand job for the next worker pass.
func (w *Worker) Enqueue(ctx context.Context, jobType string, payload interface{}) (*types.QueuedJob, error) {
	if _, ok := w.handlers[jobType]; !ok {
		return nil, fmt.Errorf("jobs: unknown job type %q", jobType)
	}
	var raw []byte
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("jobs: encode payload: %w", err)
		}
	}
	return w.repo.Enqueue(ctx, nil, &types.QueuedJob{
		JobType: jobType,
		Payload: raw,
	})
}

// Start launches the claim loop until the context is done.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce claims and executes at most one job. Exposed so tests and the
// manual trigger path can drain the queue deterministically.
func (w *Worker) RunOnce(ctx context.Context) bool {
	job, err := w.repo.ClaimNextRunnable(ctx, nil, w.policy)
	if err != nil {
		w.log.Warn("claim failed", "error", err.Error())
		return false
	}
	if job == nil {
		return false
	}

	h, ok := w.handlers[job.JobType]
	if !ok {
		w.log.Warn("no handler for job type", "job_type", job.JobType, "job_id", job.ID.String())
		if err := w.repo.MarkFailed(ctx, nil, job.ID, "no handler for job_type="+job.JobType); err != nil {
			w.log.Error("mark failed errored", "job_id", job.ID.String(), "error", err.Error())
		}
		return true
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("job handler panic", "job_id", job.ID.String(), "job_type", job.JobType, "panic", fmt.Sprint(r))
				if err := w.repo.MarkFailed(ctx, nil, job.ID, fmt.Sprintf("panic: %v", r)); err != nil {
					w.log.Error("mark failed errored", "job_id", job.ID.String(), "error", err.Error())
				}
			}
		}()
		if err := h(ctx, job); err != nil {
			w.log.Error("job failed", "job_id", job.ID.String(), "job_type", job.JobType, "error", err.Error())
			if mErr := w.repo.MarkFailed(ctx, nil, job.ID, err.Error()); mErr != nil {
				w.log.Error("mark failed errored", "job_id", job.ID.String(), "error", mErr.Error())
			}
			return
		}
		if err := w.repo.MarkSuccess(ctx, nil, job.ID); err != nil {
			w.log.Error("mark success errored", "job_id", job.ID.String(), "error", err.Error())
		}
	}()
	return true
}
