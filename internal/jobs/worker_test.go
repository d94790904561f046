package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/studyforge/learning-engine/internal/types"
)

func TestWorkerRunOnceEmptyQueue(t *testing.T) {
	f := newJobsFixture(t)
	if f.worker.RunOnce(context.Background()) {
		t.Fatalf("empty queue must claim nothing")
	}
}

func TestWorkerRunsRevisionJob(t *testing.T) {
	f := newJobsFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	seedUserAttempts(t, f, userID, uuid.New(), 4)

	job, err := f.worker.Enqueue(ctx, types.JobTypeRevisionGenerate, RevisionJobPayload{UserID: userID})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if !f.worker.RunOnce(ctx) {
		t.Fatalf("expected the worker to claim the job")
	}

	done, err := f.jobRepo.GetByID(ctx, nil, job.ID)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if done.Status != types.JobSuccess {
		t.Fatalf("expected success, got %s (last_error=%q)", done.Status, done.LastError)
	}
	if done.Attempts != 1 {
		t.Fatalf("expected one attempt, got %d", done.Attempts)
	}

	var count int64
	if err := f.db.Model(&types.RevisionEntry{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if count == 0 {
		t.Fatalf("revision job produced no queue entries")
	}
}

func TestWorkerMarksBadPayloadFailed(t *testing.T) {
	f := newJobsFixture(t)
	ctx := context.Background()

	job, err := f.worker.Enqueue(ctx, types.JobTypeRevisionGenerate, RevisionJobPayload{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if !f.worker.RunOnce(ctx) {
		t.Fatalf("expected the worker to claim the job")
	}

	failed, err := f.jobRepo.GetByID(ctx, nil, job.ID)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if failed.Status != types.JobFailed {
		t.Fatalf("expected failed, got %s", failed.Status)
	}
	if failed.LastError == "" {
		t.Fatalf("failed job must carry the error")
	}
}

func TestWorkerRejectsUnknownJobType(t *testing.T) {
	f := newJobsFixture(t)
	if _, err := f.worker.Enqueue(context.Background(), "warehouse_export", nil); err == nil {
		t.Fatalf("unknown job type must be rejected at enqueue")
	}
}

func TestWorkerClaimOrderIsFIFO(t *testing.T) {
	f := newJobsFixture(t)
	ctx := context.Background()
	userA := uuid.New()
	userB := uuid.New()
	seedUserAttempts(t, f, userA, uuid.New(), 4)
	seedUserAttempts(t, f, userB, uuid.New(), 4)

	first, err := f.worker.Enqueue(ctx, types.JobTypeRevisionGenerate, RevisionJobPayload{UserID: userA})
	if err != nil {
		t.Fatalf("enqueue first: %v", err)
	}
	if _, err := f.worker.Enqueue(ctx, types.JobTypeRevisionGenerate, RevisionJobPayload{UserID: userB}); err != nil {
		t.Fatalf("enqueue second: %v", err)
	}
	// created_at lands with second granularity on some databases; separate
	// the two enqueues explicitly so oldest-first is observable.
	if err := f.db.Model(&types.QueuedJob{}).
		Where("id = ?", first.ID).
		Update("created_at", time.Now().Add(-2*time.Second)).Error; err != nil {
		t.Fatalf("backdate first job: %v", err)
	}

	if !f.worker.RunOnce(ctx) {
		t.Fatalf("first claim failed")
	}
	done, err := f.jobRepo.GetByID(ctx, nil, first.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if done.Status != types.JobSuccess {
		t.Fatalf("oldest job must be claimed first, got status %s", done.Status)
	}
	if !f.worker.RunOnce(ctx) {
		t.Fatalf("second claim failed")
	}
	if f.worker.RunOnce(ctx) {
		t.Fatalf("queue should be drained")
	}
}
