package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-erp/aegis-erp/internal/authz"
	"github.com/aegis-erp/aegis-erp/internal/platform/httpx"
	"github.com/aegis-erp/aegis-erp/internal/settings"
)

// PasswordPolicy supplies the password rules applied on account creation.
type PasswordPolicy interface {
	Current(ctx context.Context) (settings.SecuritySettings, error)
}

// Service handles user management business logic. Company scoping is
// enforced here through the authorization registry so that repository calls
// never see out-of-scope targets.
type Service struct {
	repo     RepositoryPort
	registry *authz.Registry
	policy   PasswordPolicy
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, registry *authz.Registry, policy PasswordPolicy) *Service {
	return &Service{repo: repo, registry: registry, policy: policy}
}

// List returns the users visible to the actor: every user for super admins,
// the actor's own company otherwise.
func (s *Service) List(ctx context.Context, actor authz.Principal) ([]User, error) {
	if actor.Role == authz.RoleSuperAdmin {
		return s.repo.List(ctx)
	}
	return s.repo.ListByCompany(ctx, actor.CompanyID)
}

// Get fetches one user within the actor's scope.
func (s *Service) Get(ctx context.Context, actor authz.Principal, id int64) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if decision := s.registry.Authorize(actor, authz.NeedPermission(authz.PermUsersRead), user.CompanyID); !decision.Allowed {
		return nil, scopeError(decision)
	}
	return user, nil
}

// CreateInput carries the fields for a new account.
type CreateInput struct {
	Email     string
	Name      string
	Role      string
	CompanyID int64
	Password  string
}

// Create validates and stores a new user account.
func (s *Service) Create(ctx context.Context, actor authz.Principal, input CreateInput) (User, error) {
	role, err := authz.ParseRole(input.Role)
	if err != nil {
		return User{}, err
	}
	// Nobody hands out a role above their own rank.
	if !s.registry.IsAtLeast(actor.Role, role) {
		return User{}, fmt.Errorf("%w: cannot assign role %s", ErrRoleEscalation, role)
	}
	if decision := s.registry.Authorize(actor, authz.NeedPermission(authz.PermUsersWrite), input.CompanyID); !decision.Allowed {
		return User{}, scopeError(decision)
	}

	policy, err := s.policy.Current(ctx)
	if err != nil {
		return User{}, err
	}
	if err := policy.CheckPassword(input.Password); err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	return s.repo.Create(ctx, User{
		Email:        strings.TrimSpace(strings.ToLower(input.Email)),
		Name:         strings.TrimSpace(input.Name),
		Role:         role,
		CompanyID:    input.CompanyID,
		IsActive:     true,
		PasswordHash: string(hash),
	})
}

// SetActive toggles an account within the actor's scope.
func (s *Service) SetActive(ctx context.Context, actor authz.Principal, id int64, active bool) error {
	if _, err := s.targetInScope(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, active)
}

// SetRole changes an account's role within the actor's scope.
func (s *Service) SetRole(ctx context.Context, actor authz.Principal, id int64, rawRole string) error {
	role, err := authz.ParseRole(rawRole)
	if err != nil {
		return err
	}
	if !s.registry.IsAtLeast(actor.Role, role) {
		return fmt.Errorf("%w: cannot assign role %s", ErrRoleEscalation, role)
	}
	if _, err := s.targetInScope(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.SetRole(ctx, id, role)
}

// GrantOverride adds an additive permission override to the account. The
// token must belong to the catalog and the actor must hold it themselves.
func (s *Service) GrantOverride(ctx context.Context, actor authz.Principal, id int64, rawPerm string) error {
	perm, err := authz.ParsePermission(rawPerm)
	if err != nil {
		return err
	}
	if !s.registry.InCatalog(perm) {
		return fmt.Errorf("%w: permission %s not in catalog", httpx.ErrValidation, perm)
	}
	actorPerms, err := s.registry.PermissionsFor(actor)
	if err != nil {
		return err
	}
	if !actorPerms.Has(perm) {
		return fmt.Errorf("%w: cannot grant %s", ErrRoleEscalation, perm)
	}
	if _, err := s.targetInScope(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.GrantOverride(ctx, id, perm)
}

// RevokeOverride removes a permission override from the account.
func (s *Service) RevokeOverride(ctx context.Context, actor authz.Principal, id int64, rawPerm string) error {
	perm, err := authz.ParsePermission(rawPerm)
	if err != nil {
		return err
	}
	if _, err := s.targetInScope(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.RevokeOverride(ctx, id, perm)
}

func (s *Service) targetInScope(ctx context.Context, actor authz.Principal, id int64) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if decision := s.registry.Authorize(actor, authz.NeedPermission(authz.PermUsersWrite), user.CompanyID); !decision.Allowed {
		return nil, scopeError(decision)
	}
	return user, nil
}
