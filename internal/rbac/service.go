package rbac

import (
	"context"
	"fmt"

	"github.com/aegis-erp/aegis-erp/internal/authz"
	"github.com/aegis-erp/aegis-erp/internal/platform/httpx"
)

// PrincipalSource resolves a stored account into its principal projection.
type PrincipalSource interface {
	PrincipalFor(ctx context.Context, userID int64) (authz.Principal, error)
}

// Service answers catalog queries from the authorization registry.
type Service struct {
	registry   *authz.Registry
	principals PrincipalSource
}

// NewService builds Service instance.
func NewService(registry *authz.Registry, principals PrincipalSource) *Service {
	return &Service{registry: registry, principals: principals}
}

// ListRoles returns every role with its rank, most senior first.
func (s *Service) ListRoles() []RoleView {
	roles := s.registry.Roles()
	out := make([]RoleView, 0, len(roles))
	for _, role := range roles {
		out = append(out, RoleView{
			Name:  role,
			Label: roleLabel(role),
			Rank:  s.registry.RankOf(role),
		})
	}
	return out
}

// ListPermissions returns the full permission catalog.
func (s *Service) ListPermissions() []PermissionView {
	catalog := s.registry.Catalog()
	out := make([]PermissionView, 0, len(catalog))
	for _, perm := range catalog {
		out = append(out, PermissionView{
			Token:    perm,
			Resource: perm.Resource(),
			Action:   perm.Action(),
			Label:    permissionLabel(perm),
		})
	}
	return out
}

// EffectivePermissions resolves the full permission set of one account:
// role defaults plus per-user overrides. The target must be within the
// actor's company scope.
func (s *Service) EffectivePermissions(ctx context.Context, actor authz.Principal, userID int64) (authz.Principal, []authz.Permission, error) {
	principal, err := s.principals.PrincipalFor(ctx, userID)
	if err != nil {
		return authz.Principal{}, nil, err
	}
	if decision := s.registry.Authorize(actor, authz.NeedPermission(authz.PermUsersRead), principal.CompanyID); !decision.Allowed {
		return authz.Principal{}, nil, fmt.Errorf("%w: %s", httpx.ErrForbidden, decision.Reason)
	}
	perms, err := s.registry.PermissionsFor(principal)
	if err != nil {
		return authz.Principal{}, nil, err
	}
	return principal, perms.List(), nil
}
