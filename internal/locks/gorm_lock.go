package locks

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyforge/learning-engine/internal/logger"
	"github.com/studyforge/learning-engine/internal/repos"
)

type gormLock struct {
	db    *gorm.DB
	log   *logger.Logger
	repo  repos.JobLockRepo
	owner string
}

// NewGormLock builds the database-backed lease lock. The owner identity is
// stable per process so Release only ever clears this process's own lease.
func NewGormLock(db *gorm.DB, baseLog *logger.Logger, repo repos.JobLockRepo) Service {
	host, _ := os.Hostname()
	if host == "" {
		host = "unknown"
	}
	return &gormLock{
		db:    db,
		log:   baseLog.With("service", "JobLock", "backend", "gorm"),
		repo:  repo,
		owner: fmt.Sprintf("%s-%s", host, uuid.New().String()[:8]),
	}
}

func (l *gormLock) Acquire(ctx context.Context, jobKey string, lease time.Duration) (bool, error) {
	if jobKey == "" {
		return false, fmt.Errorf("locks: empty job key")
	}
	if lease <= 0 {
		return false, fmt.Errorf("locks: non-positive lease for %s", jobKey)
	}
	until := time.Now().Add(lease)
	ok, err := l.repo.AcquireLease(ctx, nil, jobKey, l.owner, until)
	if err != nil {
		return false, fmt.Errorf("locks: acquire %s: %w", jobKey, err)
	}
	if ok {
		l.log.Debug("Lease acquired", "job_key", jobKey, "locked_until", until)
	} else {
		l.log.Debug("Lease held elsewhere", "job_key", jobKey)
	}
	return ok, nil
}

func (l *gormLock) Release(ctx context.Context, jobKey string) error {
	if jobKey == "" {
		return nil
	}
	if err := l.repo.ReleaseLease(ctx, nil, jobKey, l.owner); err != nil {
		return fmt.Errorf("locks: release %s: %w", jobKey, err)
	}
	l.log.Debug("Lease released", "job_key", jobKey)
	return nil
}
