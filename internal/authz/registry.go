package authz

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownRole indicates a role identifier outside the closed enumeration.
// Reaching it at request time means the deployment is misconfigured; callers
// log it loudly instead of treating it as an ordinary deny.
var ErrUnknownRole = errors.New("authz: unknown role")

// Config describes the role ranks, the permission catalog and the role
// permission grants. It is validated once by NewRegistry; the registry built
// from it is immutable afterwards.
type Config struct {
	Ranks   map[Role]int
	Catalog []Permission
	Grants  map[Role][]Permission
}

// Registry resolves ranks and effective permission sets. Immutable after
// construction, safe for concurrent use without locking.
type Registry struct {
	ranks   map[Role]int
	catalog PermissionSet
	grants  map[Role]PermissionSet
}

// NewRegistry validates cfg and builds a Registry. Unknown roles, malformed
// or uncatalogued tokens and duplicate ranks are configuration errors
// reported here, never at check time.
func NewRegistry(cfg Config) (*Registry, error) {
	if len(cfg.Ranks) == 0 {
		return nil, errors.New("authz: no role ranks configured")
	}

	ranks := make(map[Role]int, len(cfg.Ranks))
	seen := make(map[int]Role, len(cfg.Ranks))
	for role, rank := range cfg.Ranks {
		if _, err := ParseRole(string(role)); err != nil {
			return nil, err
		}
		if prev, dup := seen[rank]; dup {
			return nil, fmt.Errorf("authz: roles %s and %s share rank %d", prev, role, rank)
		}
		seen[rank] = role
		ranks[role] = rank
	}
	for _, role := range AllRoles() {
		if _, ok := ranks[role]; !ok {
			return nil, fmt.Errorf("authz: role %s has no rank", role)
		}
	}

	catalog := make(PermissionSet, len(cfg.Catalog))
	for _, raw := range cfg.Catalog {
		token, err := ParsePermission(string(raw))
		if err != nil {
			return nil, err
		}
		catalog[token] = struct{}{}
	}
	if len(catalog) == 0 {
		return nil, errors.New("authz: empty permission catalog")
	}

	grants := make(map[Role]PermissionSet, len(cfg.Grants))
	for role, perms := range cfg.Grants {
		if _, ok := ranks[role]; !ok {
			return nil, fmt.Errorf("%w: %q in grants", ErrUnknownRole, role)
		}
		set := make(PermissionSet, len(perms))
		for _, raw := range perms {
			token, err := ParsePermission(string(raw))
			if err != nil {
				return nil, err
			}
			if !catalog.Has(token) {
				return nil, fmt.Errorf("authz: grant %s for role %s not in catalog", token, role)
			}
			set[token] = struct{}{}
		}
		grants[role] = set
	}
	for _, role := range AllRoles() {
		if _, ok := grants[role]; !ok {
			return nil, fmt.Errorf("authz: role %s has no grant set", role)
		}
	}

	return &Registry{ranks: ranks, catalog: catalog, grants: grants}, nil
}

// RankOf returns the seniority rank of the role, or -1 for a role outside
// the closed set.
func (r *Registry) RankOf(role Role) int {
	if rank, ok := r.ranks[role]; ok {
		return rank
	}
	return -1
}

// IsAtLeast reports whether role ranks at or above floor. Unknown roles on
// either side never satisfy the floor.
func (r *Registry) IsAtLeast(role, floor Role) bool {
	rank, ok := r.ranks[role]
	if !ok {
		return false
	}
	floorRank, ok := r.ranks[floor]
	if !ok {
		return false
	}
	return rank >= floorRank
}

// Catalog returns the full permission catalog sorted lexicographically.
func (r *Registry) Catalog() []Permission {
	return r.catalog.List()
}

// InCatalog reports whether the token belongs to the configured catalog.
func (r *Registry) InCatalog(p Permission) bool {
	return r.catalog.Has(p)
}

// Roles returns the known roles sorted by descending seniority.
func (r *Registry) Roles() []Role {
	roles := make([]Role, 0, len(r.ranks))
	for role := range r.ranks {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return r.ranks[roles[i]] > r.ranks[roles[j]] })
	return roles
}

// DefaultGrants returns a copy of the default permission set for the role.
func (r *Registry) DefaultGrants(role Role) (PermissionSet, error) {
	set, ok := r.grants[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return set.Union(nil), nil
}

// PermissionsFor resolves the effective permission set for the principal:
// the role's default grants plus additive overrides. Overrides never revoke
// a granted token.
func (r *Registry) PermissionsFor(p Principal) (PermissionSet, error) {
	defaults, ok := r.grants[p.Role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, p.Role)
	}
	effective := defaults.Union(nil)
	if len(p.Overrides) == 0 {
		return effective, nil
	}
	for _, raw := range p.Overrides {
		token, err := ParsePermission(string(raw))
		if err != nil {
			continue
		}
		if !r.catalog.Has(token) {
			continue
		}
		effective[token] = struct{}{}
	}
	return effective, nil
}
