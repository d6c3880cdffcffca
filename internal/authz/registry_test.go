package authz_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aegis-erp/aegis-erp/internal/authz"
)

func newRegistry(t *testing.T) *authz.Registry {
	t.Helper()
	reg, err := authz.NewRegistry(authz.DefaultConfig())
	require.NoError(t, err)
	return reg
}

func TestRankTotalOrder(t *testing.T) {
	reg := newRegistry(t)
	roles := authz.AllRoles()

	seen := make(map[int]bool)
	for _, role := range roles {
		rank := reg.RankOf(role)
		require.GreaterOrEqual(t, rank, 0, "role %s must have a rank", role)
		require.False(t, seen[rank], "rank %d assigned twice", rank)
		seen[rank] = true
	}

	// IsAtLeast must agree with rank comparison for every pair.
	for _, r1 := range roles {
		for _, r2 := range roles {
			want := reg.RankOf(r1) >= reg.RankOf(r2)
			require.Equal(t, want, reg.IsAtLeast(r1, r2), "IsAtLeast(%s, %s)", r1, r2)
		}
	}

	// Reflexive and antisymmetric over the closed set.
	for _, r1 := range roles {
		require.True(t, reg.IsAtLeast(r1, r1))
		for _, r2 := range roles {
			if r1 != r2 && reg.IsAtLeast(r1, r2) {
				require.False(t, reg.IsAtLeast(r2, r1))
			}
		}
	}
}

func TestSeniorityOrder(t *testing.T) {
	reg := newRegistry(t)
	require.True(t, reg.IsAtLeast(authz.RoleSuperAdmin, authz.RoleCompanyAdmin))
	require.True(t, reg.IsAtLeast(authz.RoleCompanyAdmin, authz.RoleManager))
	require.True(t, reg.IsAtLeast(authz.RoleManager, authz.RoleEmployee))
	require.True(t, reg.IsAtLeast(authz.RoleEmployee, authz.RoleViewer))
	require.False(t, reg.IsAtLeast(authz.RoleViewer, authz.RoleEmployee))
}

func TestUnknownRoleRejectedAtConstruction(t *testing.T) {
	cfg := authz.DefaultConfig()
	cfg.Ranks[authz.Role("intern")] = 10
	_, err := authz.NewRegistry(cfg)
	require.ErrorIs(t, err, authz.ErrUnknownRole)
}

func TestDuplicateRankRejected(t *testing.T) {
	cfg := authz.DefaultConfig()
	cfg.Ranks[authz.RoleViewer] = cfg.Ranks[authz.RoleEmployee]
	_, err := authz.NewRegistry(cfg)
	require.Error(t, err)
}

func TestMalformedGrantRejected(t *testing.T) {
	cfg := authz.DefaultConfig()
	cfg.Grants[authz.RoleViewer] = append(cfg.Grants[authz.RoleViewer], authz.Permission("widgets"))
	_, err := authz.NewRegistry(cfg)
	require.Error(t, err)
}

func TestGrantOutsideCatalogRejected(t *testing.T) {
	cfg := authz.DefaultConfig()
	cfg.Grants[authz.RoleViewer] = append(cfg.Grants[authz.RoleViewer], authz.Permission("widgets:write"))
	_, err := authz.NewRegistry(cfg)
	require.Error(t, err)
}

func TestPermissionsForUnknownRole(t *testing.T) {
	reg := newRegistry(t)
	_, err := reg.PermissionsFor(authz.Principal{UserID: 1, Role: "contractor", IsActive: true})
	require.ErrorIs(t, err, authz.ErrUnknownRole)
}

func TestPermissionsForMonotonicOverrides(t *testing.T) {
	reg := newRegistry(t)
	base := authz.Principal{UserID: 7, Role: authz.RoleManager, CompanyID: 1, IsActive: true}

	defaults, err := reg.PermissionsFor(base)
	require.NoError(t, err)
	require.False(t, defaults.Has(authz.PermUsersWrite))

	withOverride := base
	withOverride.Overrides = []authz.Permission{authz.PermUsersWrite}
	effective, err := reg.PermissionsFor(withOverride)
	require.NoError(t, err)

	// Every default token survives; the override is added on top.
	for _, p := range defaults.List() {
		require.True(t, effective.Has(p), "override removed default grant %s", p)
	}
	require.True(t, effective.Has(authz.PermUsersWrite))
}

func TestPermissionsForReturnsDetachedSet(t *testing.T) {
	reg := newRegistry(t)
	p := authz.Principal{UserID: 7, Role: authz.RoleManager, CompanyID: 1, IsActive: true}

	first, err := reg.PermissionsFor(p)
	require.NoError(t, err)
	for _, tok := range first.List() {
		delete(first, tok)
	}
	first[authz.Permission("widgets:write")] = struct{}{}

	second, err := reg.PermissionsFor(p)
	require.NoError(t, err)
	require.False(t, second.Has("widgets:write"))

	defaults, err := reg.DefaultGrants(authz.RoleManager)
	require.NoError(t, err)
	require.Equal(t, defaults.List(), second.List())
}

func TestOverridesOutsideCatalogIgnored(t *testing.T) {
	reg := newRegistry(t)
	p := authz.Principal{
		UserID:    7,
		Role:      authz.RoleViewer,
		CompanyID: 1,
		IsActive:  true,
		Overrides: []authz.Permission{"widgets:write", "bogus"},
	}
	effective, err := reg.PermissionsFor(p)
	require.NoError(t, err)
	require.False(t, effective.Has("widgets:write"))
	require.False(t, effective.Has("bogus"))
}

func TestParsePermission(t *testing.T) {
	token, err := authz.ParsePermission(" Users:Write ")
	require.NoError(t, err)
	require.Equal(t, authz.PermUsersWrite, token)
	require.Equal(t, "users", token.Resource())
	require.Equal(t, "write", token.Action())

	for _, raw := range []string{"", "users", ":write", "users:"} {
		_, err := authz.ParsePermission(raw)
		require.Error(t, err, "raw=%q", raw)
	}
}

func TestRolesSortedBySeniority(t *testing.T) {
	reg := newRegistry(t)
	roles := reg.Roles()
	require.Equal(t, authz.AllRoles(), roles)
}
