package authz_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/aegis-erp/aegis-erp/internal/authz"
	"github.com/aegis-erp/aegis-erp/internal/shared"
	_ "github.com/aegis-erp/aegis-erp/testing"
)

type recordingObserver struct {
	allowed int
	denied  map[string]int
}

func (o *recordingObserver) ObserveDecision(allowed bool, reason string) {
	if allowed {
		o.allowed++
		return
	}
	if o.denied == nil {
		o.denied = make(map[string]int)
	}
	o.denied[reason]++
}

type recordingAudit struct {
	entries []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

func newTestRouter(t *testing.T, observer authz.DecisionObserver, audit authz.AuditRecorder) chi.Router {
	t.Helper()
	reg := newRegistry(t)
	mw := authz.Middleware{
		Registry: reg,
		Logger:   slog.New(slog.NewTextHandler(os.Stderr, nil)),
		Observer: observer,
		Audit:    audit,
	}

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(mw.RequirePermission(authz.PermUsersRead))
		r.Get("/users", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireScoped(authz.PermProductsRead, authz.ScopeFromURLParam("companyID")))
		r.Get("/companies/{companyID}/products", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(authz.RoleCompanyAdmin))
		r.Get("/admin", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	return r
}

func doRequest(router chi.Router, target string, principal *authz.Principal) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if principal != nil {
		req = req.WithContext(authz.ContextWithPrincipal(req.Context(), *principal))
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestMiddlewareWithoutPrincipal(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	res := doRequest(router, "/users", nil)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestMiddlewarePermissionGate(t *testing.T) {
	observer := &recordingObserver{}
	router := newTestRouter(t, observer, nil)

	manager := authz.Principal{UserID: 10, Role: authz.RoleManager, CompanyID: 1, IsActive: true}
	res := doRequest(router, "/users", &manager)
	require.Equal(t, http.StatusOK, res.Code)

	viewer := authz.Principal{UserID: 11, Role: authz.RoleViewer, CompanyID: 1, IsActive: true}
	res = doRequest(router, "/users", &viewer)
	require.Equal(t, http.StatusForbidden, res.Code)

	require.Equal(t, 1, observer.allowed)
	require.Equal(t, 1, observer.denied[string(authz.ReasonInsufficientPermission)])
}

func TestMiddlewareCompanyScope(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	manager := authz.Principal{UserID: 10, Role: authz.RoleManager, CompanyID: 1, IsActive: true}

	res := doRequest(router, "/companies/1/products", &manager)
	require.Equal(t, http.StatusOK, res.Code)

	res = doRequest(router, "/companies/2/products", &manager)
	require.Equal(t, http.StatusForbidden, res.Code)

	superAdmin := authz.Principal{UserID: 1, Role: authz.RoleSuperAdmin, CompanyID: 1, IsActive: true}
	res = doRequest(router, "/companies/2/products", &superAdmin)
	require.Equal(t, http.StatusOK, res.Code)
}

func TestMiddlewareRoleFloor(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	admin := authz.Principal{UserID: 2, Role: authz.RoleCompanyAdmin, CompanyID: 1, IsActive: true}
	res := doRequest(router, "/admin", &admin)
	require.Equal(t, http.StatusOK, res.Code)

	manager := authz.Principal{UserID: 10, Role: authz.RoleManager, CompanyID: 1, IsActive: true}
	res = doRequest(router, "/admin", &manager)
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestMiddlewareAuditsDenials(t *testing.T) {
	audit := &recordingAudit{}
	router := newTestRouter(t, nil, audit)

	manager := authz.Principal{UserID: 10, Role: authz.RoleManager, CompanyID: 1, IsActive: true}
	res := doRequest(router, "/users", &manager)
	require.Equal(t, http.StatusOK, res.Code)
	require.Empty(t, audit.entries, "allowed decisions must not reach the audit trail")

	res = doRequest(router, "/companies/2/products", &manager)
	require.Equal(t, http.StatusForbidden, res.Code)
	require.Len(t, audit.entries, 1)

	entry := audit.entries[0]
	require.Equal(t, shared.AuditActionAccessDenied, entry.Action)
	require.Equal(t, int64(10), entry.ActorID)
	require.Equal(t, "authz", entry.Entity)
	require.Equal(t, string(authz.ReasonCompanyScopeViolation), entry.Meta["reason"])
	require.Equal(t, int64(2), entry.Meta["target_company_id"])
}
