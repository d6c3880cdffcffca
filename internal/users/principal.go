package users

import (
	"context"

	"github.com/aegis-erp/aegis-erp/internal/authz"
)

// PrincipalSource adapts the repository for modules that only need the
// authorization projection of an account.
type PrincipalSource struct {
	repo RepositoryPort
}

// NewPrincipalSource builds PrincipalSource instance.
func NewPrincipalSource(repo RepositoryPort) *PrincipalSource {
	return &PrincipalSource{repo: repo}
}

// PrincipalFor loads one account and projects it.
func (s *PrincipalSource) PrincipalFor(ctx context.Context, userID int64) (authz.Principal, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return authz.Principal{}, err
	}
	return user.Principal(), nil
}
