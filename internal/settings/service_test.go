package settings

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aegis-erp/aegis-erp/internal/shared"
	_ "github.com/aegis-erp/aegis-erp/testing"
)

type memoryRepo struct {
	mu     sync.Mutex
	stored *SecuritySettings
	loads  int
}

func (r *memoryRepo) Load(ctx context.Context) (SecuritySettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	if r.stored == nil {
		return SecuritySettings{}, shared.ErrNotFound
	}
	return *r.stored, nil
}

func (r *memoryRepo) Save(ctx context.Context, s SecuritySettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = &s
	return nil
}

func TestCurrentFallsBackToDefaults(t *testing.T) {
	svc := NewService(&memoryRepo{}, nil)
	current, err := svc.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, Defaults(), current)
}

func TestCurrentCachesReads(t *testing.T) {
	repo := &memoryRepo{stored: &SecuritySettings{MinLength: 10, Threshold: 3, LockoutDurationMinutes: 15}}
	svc := NewService(repo, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Current(ctx)
		require.NoError(t, err)
	}
	require.Equal(t, 1, repo.loads)
}

func TestUpdateInvalidatesCache(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Current(ctx)
	require.NoError(t, err)

	next := Defaults()
	next.Threshold = 3
	next.LockoutDurationMinutes = 10
	require.NoError(t, svc.Update(ctx, next))

	current, err := svc.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, current.Threshold)
}

func TestLockoutPolicyFromSettings(t *testing.T) {
	repo := &memoryRepo{stored: &SecuritySettings{MinLength: 8, Threshold: 7, LockoutDurationMinutes: 45}}
	svc := NewService(repo, nil)

	policy, err := svc.LockoutPolicy(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, policy.Threshold)
	require.Equal(t, 45*time.Minute, policy.LockFor)
}

func TestCheckPassword(t *testing.T) {
	policy := SecuritySettings{MinLength: 8, RequireNumbers: true, RequireSpecialChars: true}

	require.ErrorIs(t, policy.CheckPassword("short"), ErrPasswordTooShort)
	require.ErrorIs(t, policy.CheckPassword("longenough"), ErrPasswordNeedsNum)
	require.ErrorIs(t, policy.CheckPassword("longenough1"), ErrPasswordNeedsSpec)
	require.NoError(t, policy.CheckPassword("longenough1!"))

	lax := SecuritySettings{MinLength: 6}
	require.NoError(t, lax.CheckPassword("abcdef"))
}
