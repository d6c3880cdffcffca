package users

import (
	"context"

	"github.com/aegis-erp/aegis-erp/internal/authz"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	ListByCompany(ctx context.Context, companyID int64) ([]User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, user User) (User, error)
	SetActive(ctx context.Context, id int64, active bool) error
	SetRole(ctx context.Context, id int64, role authz.Role) error
	GrantOverride(ctx context.Context, id int64, perm authz.Permission) error
	RevokeOverride(ctx context.Context, id int64, perm authz.Permission) error
}
