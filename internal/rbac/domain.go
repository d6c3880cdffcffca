// Package rbac exposes the read-only role and permission catalog endpoints.
package rbac

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aegis-erp/aegis-erp/internal/authz"
)

// RoleView is the API projection of a role.
type RoleView struct {
	Name  authz.Role `json:"name"`
	Label string     `json:"label"`
	Rank  int        `json:"rank"`
}

// PermissionView is the API projection of a catalog permission.
type PermissionView struct {
	Token    authz.Permission `json:"token"`
	Resource string           `json:"resource"`
	Action   string           `json:"action"`
	Label    string           `json:"label"`
}

var titler = cases.Title(language.English)

// roleLabel renders "company_admin" as "Company Admin".
func roleLabel(role authz.Role) string {
	return titler.String(strings.ReplaceAll(string(role), "_", " "))
}

// permissionLabel renders "users:write" as "Users / Write".
func permissionLabel(p authz.Permission) string {
	return titler.String(p.Resource()) + " / " + titler.String(p.Action())
}
