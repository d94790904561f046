package locks

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/studyforge/learning-engine/internal/logger"
)

// releaseScript deletes the lease only when this process still owns it, so a
// slow holder can never clear a lease someone else has since reclaimed.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLock struct {
	log    *logger.Logger
	rdb    *goredis.Client
	owner  string
	prefix string
}

// NewRedisLock builds the Redis-backed lease lock for deployments where
// multiple engine processes do not share a database.
func NewRedisLock(log *logger.Logger) (Service, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("locks: missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("locks: redis ping: %w", err)
	}
	host, _ := os.Hostname()
	if host == "" {
		host = "unknown"
	}
	return &redisLock{
		log:    log.With("service", "JobLock", "backend", "redis"),
		rdb:    rdb,
		owner:  fmt.Sprintf("%s-%s", host, uuid.New().String()[:8]),
		prefix: "joblock:",
	}, nil
}

func (l *redisLock) Acquire(ctx context.Context, jobKey string, lease time.Duration) (bool, error) {
	if jobKey == "" {
		return false, fmt.Errorf("locks: empty job key")
	}
	if lease <= 0 {
		return false, fmt.Errorf("locks: non-positive lease for %s", jobKey)
	}
	ok, err := l.rdb.SetNX(ctx, l.prefix+jobKey, l.owner, lease).Result()
	if err != nil {
		return false, fmt.Errorf("locks: acquire %s: %w", jobKey, err)
	}
	if ok {
		l.log.Debug("Lease acquired", "job_key", jobKey, "lease", lease)
	} else {
		l.log.Debug("Lease held elsewhere", "job_key", jobKey)
	}
	return ok, nil
}

func (l *redisLock) Release(ctx context.Context, jobKey string) error {
	if jobKey == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, l.rdb, []string{l.prefix + jobKey}, l.owner).Err(); err != nil && err != goredis.Nil {
		return fmt.Errorf("locks: release %s: %w", jobKey, err)
	}
	l.log.Debug("Lease released", "job_key", jobKey)
	return nil
}
