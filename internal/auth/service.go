package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-erp/aegis-erp/internal/lockout"
	"github.com/aegis-erp/aegis-erp/internal/shared"
	"github.com/aegis-erp/aegis-erp/internal/users"
)

// Service wraps authentication business rules. Every credential check goes
// through the lockout guard: a locked identity is refused before the
// password is even looked at, and failed attempts count toward the lock
// whether the account exists or not.
type Service struct {
	repo   Repository
	guard  *lockout.Guard
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, guard *lockout.Guard, logger *slog.Logger) *Service {
	return &Service{repo: repo, guard: guard, logger: logger}
}

// Login validates email/password credentials under the lockout policy.
// It returns shared.ErrInvalidCredentials for any bad attempt and a
// *shared.LockedError when the identity is locked, including the attempt
// that trips the lock.
func (s *Service) Login(ctx context.Context, email, password string) (*users.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	key := lockoutKey(email)

	status, err := s.guard.CheckLocked(ctx, key)
	if err != nil {
		return nil, err
	}
	if status.Locked() {
		return nil, &shared.LockedError{Until: status.LockedUntil}
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if notFound(err) {
			return nil, s.fail(ctx, key)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, s.fail(ctx, key)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, s.fail(ctx, key)
	}

	if err := s.guard.RecordSuccess(ctx, key); err != nil {
		s.logger.Warn("reset lockout counter", slog.Any("error", err))
	}
	return user, nil
}

// fail records the attempt and picks the error the caller should surface.
func (s *Service) fail(ctx context.Context, key string) error {
	status, err := s.guard.RecordFailure(ctx, key)
	if err != nil {
		s.logger.Error("record auth failure", slog.Any("error", err))
		return shared.ErrInvalidCredentials
	}
	if status.Locked() {
		return &shared.LockedError{Until: status.LockedUntil}
	}
	return shared.ErrInvalidCredentials
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// FindUser loads one account, used by the principal middleware.
func (s *Service) FindUser(ctx context.Context, id int64) (*users.User, error) {
	return s.repo.FindByID(ctx, id)
}

func lockoutKey(email string) string {
	return "user:" + email
}
