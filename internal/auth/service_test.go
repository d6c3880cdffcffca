package auth_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-erp/aegis-erp/internal/auth"
	"github.com/aegis-erp/aegis-erp/internal/authz"
	"github.com/aegis-erp/aegis-erp/internal/lockout"
	"github.com/aegis-erp/aegis-erp/internal/shared"
	"github.com/aegis-erp/aegis-erp/internal/users"
	_ "github.com/aegis-erp/aegis-erp/testing"
)

type stubRepo struct {
	user    *users.User
	lookups int
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	s.lookups++
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*users.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func newService(t *testing.T, repo auth.Repository) (*auth.Service, *lockout.Guard) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	guard := lockout.NewGuard(lockout.NewRedisStore(client), nil, slog.Default(), nil)
	return auth.NewService(repo, guard, slog.Default()), guard
}

func activeUser(t *testing.T, password string) *users.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &users.User{
		ID:           1,
		Email:        "admin@acme.test",
		Role:         authz.RoleCompanyAdmin,
		CompanyID:    7,
		IsActive:     true,
		PasswordHash: string(hash),
	}
}

func TestLoginSuccess(t *testing.T) {
	svc, _ := newService(t, &stubRepo{user: activeUser(t, "correct-horse")})

	user, err := svc.Login(context.Background(), "Admin@Acme.Test", "correct-horse")
	require.NoError(t, err)
	require.EqualValues(t, 1, user.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, guard := newService(t, &stubRepo{user: activeUser(t, "correct-horse")})

	_, err := svc.Login(context.Background(), "admin@acme.test", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	status, err := guard.CheckLocked(context.Background(), "user:admin@acme.test")
	require.NoError(t, err)
	require.Equal(t, lockout.StateWarning, status.State)
	require.Equal(t, 1, status.Failures)
}

func TestLoginThresholdAttemptReturnsLocked(t *testing.T) {
	svc, _ := newService(t, &stubRepo{user: activeUser(t, "correct-horse")})
	ctx := context.Background()

	for i := 0; i < lockout.DefaultThreshold-1; i++ {
		_, err := svc.Login(ctx, "admin@acme.test", "wrong")
		require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	}

	_, err := svc.Login(ctx, "admin@acme.test", "wrong")
	locked, ok := shared.IsLocked(err)
	require.True(t, ok, "threshold attempt should surface the lock")
	require.WithinDuration(t, time.Now().Add(lockout.DefaultLockDuration), locked.Until, 5*time.Second)
}

func TestLoginRefusedWhileLockedWithoutCredentialCheck(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "correct-horse")}
	svc, _ := newService(t, repo)
	ctx := context.Background()

	for i := 0; i < lockout.DefaultThreshold; i++ {
		_, _ = svc.Login(ctx, "admin@acme.test", "wrong")
	}
	lookups := repo.lookups

	// Correct password changes nothing while the lock holds.
	_, err := svc.Login(ctx, "admin@acme.test", "correct-horse")
	_, ok := shared.IsLocked(err)
	require.True(t, ok)
	require.Equal(t, lookups, repo.lookups, "locked identity must not reach the repository")
}

func TestLoginUnknownEmailAccruesFailures(t *testing.T) {
	svc, _ := newService(t, &stubRepo{})
	ctx := context.Background()

	for i := 0; i < lockout.DefaultThreshold-1; i++ {
		_, err := svc.Login(ctx, "ghost@acme.test", "whatever")
		require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	}
	_, err := svc.Login(ctx, "ghost@acme.test", "whatever")
	_, ok := shared.IsLocked(err)
	require.True(t, ok, "unknown identities lock like real ones")
}

func TestLoginInactiveAccount(t *testing.T) {
	user := activeUser(t, "correct-horse")
	user.IsActive = false
	svc, guard := newService(t, &stubRepo{user: user})

	_, err := svc.Login(context.Background(), "admin@acme.test", "correct-horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	status, err := guard.CheckLocked(context.Background(), "user:admin@acme.test")
	require.NoError(t, err)
	require.Equal(t, 1, status.Failures)
}

func TestLoginSuccessResetsCounter(t *testing.T) {
	svc, guard := newService(t, &stubRepo{user: activeUser(t, "correct-horse")})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = svc.Login(ctx, "admin@acme.test", "wrong")
	}
	_, err := svc.Login(ctx, "admin@acme.test", "correct-horse")
	require.NoError(t, err)

	status, err := guard.CheckLocked(ctx, "user:admin@acme.test")
	require.NoError(t, err)
	require.Equal(t, lockout.StateClear, status.State)

	// Counting starts over after the reset.
	for i := 0; i < lockout.DefaultThreshold-1; i++ {
		_, err := svc.Login(ctx, "admin@acme.test", "wrong")
		require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	}
}
