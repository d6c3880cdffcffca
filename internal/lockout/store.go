package lockout

import (
	"context"
	"time"
)

// Record is the persisted lockout state for one principal identifier. The
// zero value means Clear.
type Record struct {
	Failures    int
	LockedUntil time.Time
	// Tripped is set by Fail when this call created the lock.
	Tripped bool
}

// Store persists lockout records keyed by principal identifier. Fail must
// apply the increment-and-maybe-lock transition atomically per key so that
// concurrent failed attempts cannot race past the threshold without
// tripping the lock.
type Store interface {
	Fail(ctx context.Context, principalID string, policy Policy, now time.Time) (Record, error)
	Clear(ctx context.Context, principalID string) error
	Get(ctx context.Context, principalID string, now time.Time) (Record, error)
}
