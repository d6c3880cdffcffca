// Package authz implements the role and permission authorization core.
// The registry of roles, ranks and grants is built once at startup from a
// validated configuration and is safe for concurrent reads.
package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Role identifies one of the closed set of system roles.
type Role string

// System roles ordered by seniority (most senior first).
const (
	RoleSuperAdmin   Role = "super_admin"
	RoleCompanyAdmin Role = "company_admin"
	RoleManager      Role = "manager"
	RoleEmployee     Role = "employee"
	RoleViewer       Role = "viewer"
)

// AllRoles lists every system role from most to least senior.
func AllRoles() []Role {
	return []Role{RoleSuperAdmin, RoleCompanyAdmin, RoleManager, RoleEmployee, RoleViewer}
}

// ParseRole validates a raw role identifier against the closed set.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.TrimSpace(strings.ToLower(raw)))
	for _, known := range AllRoles() {
		if role == known {
			return role, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
}

// Permission is a fine-grained capability token of the form "resource:action".
type Permission string

// Resource returns the resource part of the token.
func (p Permission) Resource() string {
	if i := strings.IndexByte(string(p), ':'); i >= 0 {
		return string(p)[:i]
	}
	return string(p)
}

// Action returns the action part of the token.
func (p Permission) Action() string {
	if i := strings.IndexByte(string(p), ':'); i >= 0 {
		return string(p)[i+1:]
	}
	return ""
}

// ErrMalformedPermission indicates a token that is not "resource:action".
var ErrMalformedPermission = errors.New("authz: malformed permission token")

// ParsePermission normalizes and validates the token shape. Membership in the
// configured catalog is checked by the Registry, not here.
func ParsePermission(raw string) (Permission, error) {
	token := strings.TrimSpace(strings.ToLower(raw))
	resource, action, found := strings.Cut(token, ":")
	if !found || resource == "" || action == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedPermission, raw)
	}
	return Permission(token), nil
}

// PermissionSet is a membership set of permission tokens.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given tokens.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Union returns a new set containing members of both sets.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	merged := make(PermissionSet, len(s)+len(other))
	for p := range s {
		merged[p] = struct{}{}
	}
	for p := range other {
		merged[p] = struct{}{}
	}
	return merged
}

// List returns the members sorted lexicographically.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Principal is the authorization-relevant projection of an authenticated
// user. It lives for the duration of a request.
type Principal struct {
	UserID    int64
	Role      Role
	CompanyID int64
	Overrides []Permission
	IsActive  bool
}
