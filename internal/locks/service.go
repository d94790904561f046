package locks

import (
	"context"
	"time"
)

// Well-known job keys.
const (
	KeyNightlyRevision = "nightly_revision"
	KeyNightlyBKTFit   = "nightly_bkt_fit"
)

// Service is a lease-based mutual exclusion primitive. Acquire never blocks:
// contention yields false immediately, and an expired lease is reclaimable by
// anyone, so a crashed holder self-heals after the lease runs out.
type Service interface {
	Acquire(ctx context.Context, jobKey string, lease time.Duration) (bool, error)
	Release(ctx context.Context, jobKey string) error
}
