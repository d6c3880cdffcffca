package rbac_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/aegis-erp/aegis-erp/internal/authz"
	"github.com/aegis-erp/aegis-erp/internal/rbac"
	"github.com/aegis-erp/aegis-erp/internal/shared"
	_ "github.com/aegis-erp/aegis-erp/testing"
)

type stubPrincipals struct {
	byID map[int64]authz.Principal
}

func (s *stubPrincipals) PrincipalFor(ctx context.Context, userID int64) (authz.Principal, error) {
	p, ok := s.byID[userID]
	if !ok {
		return authz.Principal{}, shared.ErrNotFound
	}
	return p, nil
}

func newCatalogRouter(t *testing.T, principals rbac.PrincipalSource) (*chi.Mux, *authz.Registry) {
	t.Helper()
	registry, err := authz.NewRegistry(authz.DefaultConfig())
	require.NoError(t, err)
	handler := rbac.NewHandler(slog.Default(), rbac.NewService(registry, principals), authz.Middleware{Registry: registry})
	router := chi.NewRouter()
	router.Route("/rbac", handler.MountRoutes)
	return router, registry
}

func doAs(router http.Handler, principal *authz.Principal, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if principal != nil {
		req = req.WithContext(authz.ContextWithPrincipal(req.Context(), *principal))
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestListRolesOrderedBySeniority(t *testing.T) {
	router, _ := newCatalogRouter(t, &stubPrincipals{})
	manager := authz.Principal{UserID: 1, Role: authz.RoleManager, CompanyID: 1, IsActive: true}

	res := doAs(router, &manager, "/rbac/roles")
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		Roles []struct {
			Name  string `json:"name"`
			Label string `json:"label"`
			Rank  int    `json:"rank"`
		} `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	require.Len(t, payload.Roles, 5)
	require.Equal(t, "super_admin", payload.Roles[0].Name)
	require.Equal(t, "Super Admin", payload.Roles[0].Label)
	for i := 1; i < len(payload.Roles); i++ {
		require.Greater(t, payload.Roles[i-1].Rank, payload.Roles[i].Rank)
	}
}

func TestListPermissionsRequiresCatalogRead(t *testing.T) {
	router, _ := newCatalogRouter(t, &stubPrincipals{})

	res := doAs(router, nil, "/rbac/permissions")
	require.Equal(t, http.StatusUnauthorized, res.Code)

	viewer := authz.Principal{UserID: 2, Role: authz.RoleViewer, CompanyID: 1, IsActive: true}
	res = doAs(router, &viewer, "/rbac/permissions")
	require.Equal(t, http.StatusForbidden, res.Code, "viewers cannot browse the catalog")

	admin := authz.Principal{UserID: 1, Role: authz.RoleCompanyAdmin, CompanyID: 1, IsActive: true}
	res = doAs(router, &admin, "/rbac/permissions")
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "users:read")
}

func TestEffectivePermissionsMergesOverrides(t *testing.T) {
	principals := &stubPrincipals{byID: map[int64]authz.Principal{
		42: {UserID: 42, Role: authz.RoleEmployee, CompanyID: 7, IsActive: true, Overrides: []authz.Permission{"users:write"}},
	}}
	router, _ := newCatalogRouter(t, principals)
	admin := authz.Principal{UserID: 1, Role: authz.RoleCompanyAdmin, CompanyID: 7, IsActive: true}

	res := doAs(router, &admin, "/rbac/users/42/permissions")
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	require.Equal(t, "employee", payload.Role)
	require.Contains(t, payload.Permissions, "users:write")
	require.Contains(t, payload.Permissions, "products:read")
}

func TestEffectivePermissionsScopedToCompany(t *testing.T) {
	principals := &stubPrincipals{byID: map[int64]authz.Principal{
		42: {UserID: 42, Role: authz.RoleEmployee, CompanyID: 2, IsActive: true},
	}}
	router, _ := newCatalogRouter(t, principals)
	admin := authz.Principal{UserID: 1, Role: authz.RoleCompanyAdmin, CompanyID: 7, IsActive: true}

	res := doAs(router, &admin, "/rbac/users/42/permissions")
	require.Equal(t, http.StatusForbidden, res.Code)
}
