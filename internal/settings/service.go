package settings

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aegis-erp/aegis-erp/internal/lockout"
	"github.com/aegis-erp/aegis-erp/internal/shared"
)

// cacheTTL bounds how stale a cached settings read may be. Lockout policy
// changes take effect within this window.
const cacheTTL = 30 * time.Second

// Service serves cached security settings. Concurrent cache misses are
// coalesced into a single repository read.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger

	group singleflight.Group

	mu       sync.RWMutex
	cached   SecuritySettings
	loadedAt time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Current returns the active settings, falling back to Defaults when no row
// has been stored yet.
func (s *Service) Current(ctx context.Context) (SecuritySettings, error) {
	s.mu.RLock()
	if !s.loadedAt.IsZero() && time.Since(s.loadedAt) < cacheTTL {
		cached := s.cached
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	value, err, _ := s.group.Do("security", func() (any, error) {
		loaded, err := s.repo.Load(ctx)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				loaded = Defaults()
			} else {
				return SecuritySettings{}, err
			}
		}
		s.mu.Lock()
		s.cached = loaded
		s.loadedAt = time.Now()
		s.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return SecuritySettings{}, err
	}
	return value.(SecuritySettings), nil
}

// Update validates and persists new settings, then invalidates the cache.
func (s *Service) Update(ctx context.Context, next SecuritySettings) error {
	if err := s.repo.Save(ctx, next); err != nil {
		return err
	}
	s.mu.Lock()
	s.cached = next
	s.loadedAt = time.Now()
	s.mu.Unlock()
	return nil
}

// LockoutPolicy implements lockout.PolicySource from the current settings.
func (s *Service) LockoutPolicy(ctx context.Context) (lockout.Policy, error) {
	current, err := s.Current(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("load lockout policy", slog.Any("error", err))
		}
		return lockout.Policy{}, err
	}
	return lockout.Policy{Threshold: current.Threshold, LockFor: current.LockoutDuration()}, nil
}

var _ lockout.PolicySource = (*Service)(nil)
