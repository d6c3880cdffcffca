// Package lockout tracks failed authentication attempts per principal and
// enforces temporary account lockout.
package lockout

import (
	"context"
	"log/slog"
	"time"
)

// Defaults mirrored from the security settings entity.
const (
	DefaultThreshold    = 5
	DefaultLockDuration = 30 * time.Minute
)

// State names the guard's position in the Clear -> Warning -> Locked machine.
type State string

// Guard states.
const (
	StateClear   State = "clear"
	StateWarning State = "warning"
	StateLocked  State = "locked"
)

// Status is the externally visible lockout state for a principal.
type Status struct {
	State       State
	Failures    int
	LockedUntil time.Time
}

// Locked reports whether authentication attempts are currently refused.
func (s Status) Locked() bool {
	return s.State == StateLocked
}

// Policy parameterizes the guard.
type Policy struct {
	Threshold int
	LockFor   time.Duration
}

// DefaultPolicy returns the built-in policy values.
func DefaultPolicy() Policy {
	return Policy{Threshold: DefaultThreshold, LockFor: DefaultLockDuration}
}

// PolicySource supplies the current lockout policy, usually backed by the
// security settings service.
type PolicySource interface {
	LockoutPolicy(ctx context.Context) (Policy, error)
}

// StaticPolicy is a PolicySource with fixed values.
type StaticPolicy Policy

// LockoutPolicy implements PolicySource.
func (p StaticPolicy) LockoutPolicy(ctx context.Context) (Policy, error) {
	return Policy(p), nil
}

// Observer is notified when a principal transitions into the locked state.
type Observer interface {
	ObserveLockout()
}

// Guard coordinates the lockout state machine over a Store. Expiry is lazy:
// a lock whose deadline passed reads as Clear on the next check, no sweeper
// is involved.
type Guard struct {
	store    Store
	policies PolicySource
	logger   *slog.Logger
	observer Observer

	// Clock is overridable in tests; nil means time.Now.
	Clock func() time.Time
}

// NewGuard constructs a Guard.
func NewGuard(store Store, policies PolicySource, logger *slog.Logger, observer Observer) *Guard {
	if policies == nil {
		policies = StaticPolicy(DefaultPolicy())
	}
	return &Guard{store: store, policies: policies, logger: logger, observer: observer}
}

func (g *Guard) now() time.Time {
	if g.Clock != nil {
		return g.Clock()
	}
	return time.Now()
}

// RecordFailure registers a failed authentication attempt and returns the
// resulting status. Reaching the threshold always moves the principal to
// Locked; the transition is atomic per principal even under concurrent
// failures.
func (g *Guard) RecordFailure(ctx context.Context, principalID string) (Status, error) {
	policy, err := g.policies.LockoutPolicy(ctx)
	if err != nil {
		return Status{}, err
	}
	now := g.now()
	rec, err := g.store.Fail(ctx, principalID, policy, now)
	if err != nil {
		return Status{}, err
	}
	status := statusOf(rec, now)
	if rec.Tripped {
		if g.observer != nil {
			g.observer.ObserveLockout()
		}
		if g.logger != nil {
			g.logger.Warn("principal locked out",
				slog.String("principal", principalID),
				slog.Int("failures", rec.Failures),
				slog.Time("locked_until", rec.LockedUntil))
		}
	}
	return status, nil
}

// RecordSuccess resets the principal to Clear regardless of prior failures.
func (g *Guard) RecordSuccess(ctx context.Context, principalID string) error {
	return g.store.Clear(ctx, principalID)
}

// CheckLocked reports the current status. An expired lock reads as Clear.
func (g *Guard) CheckLocked(ctx context.Context, principalID string) (Status, error) {
	now := g.now()
	rec, err := g.store.Get(ctx, principalID, now)
	if err != nil {
		return Status{}, err
	}
	return statusOf(rec, now), nil
}

func statusOf(rec Record, now time.Time) Status {
	switch {
	case rec.LockedUntil.After(now):
		return Status{State: StateLocked, Failures: rec.Failures, LockedUntil: rec.LockedUntil}
	case rec.Failures > 0:
		return Status{State: StateWarning, Failures: rec.Failures}
	default:
		return Status{State: StateClear}
	}
}
