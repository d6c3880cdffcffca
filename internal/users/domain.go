package users

import (
	"time"

	"github.com/aegis-erp/aegis-erp/internal/authz"
)

// User represents a user account for management.
type User struct {
	ID           int64              `json:"id"`
	Email        string             `json:"email"`
	Name         string             `json:"name"`
	Role         authz.Role         `json:"role"`
	CompanyID    int64              `json:"company_id"`
	IsActive     bool               `json:"is_active"`
	PasswordHash string             `json:"-"`
	Overrides    []authz.Permission `json:"overrides,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Principal projects the account into its authorization-relevant form.
func (u User) Principal() authz.Principal {
	return authz.Principal{
		UserID:    u.ID,
		Role:      u.Role,
		CompanyID: u.CompanyID,
		Overrides: u.Overrides,
		IsActive:  u.IsActive,
	}
}
