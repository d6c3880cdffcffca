package authz

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aegis-erp/aegis-erp/internal/platform/httpx"
	"github.com/aegis-erp/aegis-erp/internal/shared"
)

// DecisionObserver receives the outcome of every middleware authorization
// check, typically backed by Prometheus counters.
type DecisionObserver interface {
	ObserveDecision(allowed bool, reason string)
}

// AuditRecorder persists denied decisions to the audit trail. Satisfied by
// *shared.AuditLogger.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ScopeFunc extracts the target company ID from a request. Returning zero
// means the route is not company-scoped.
type ScopeFunc func(r *http.Request) int64

// ScopeFromURLParam reads the target company ID from a chi URL parameter.
func ScopeFromURLParam(name string) ScopeFunc {
	return func(r *http.Request) int64 {
		raw := chi.URLParam(r, name)
		if raw == "" {
			return 0
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0
		}
		return id
	}
}

// Middleware gates HTTP routes on authorization decisions. The principal is
// expected in the request context, placed there by the auth layer.
type Middleware struct {
	Registry *Registry
	Logger   *slog.Logger
	Observer DecisionObserver
	Audit    AuditRecorder
}

// RequirePermission gates the route on a permission token without company
// scoping.
func (m Middleware) RequirePermission(perm Permission) func(http.Handler) http.Handler {
	return m.require(NeedPermission(perm), nil)
}

// RequireRole gates the route on a minimum role rank.
func (m Middleware) RequireRole(floor Role) func(http.Handler) http.Handler {
	return m.require(NeedRole(floor), nil)
}

// RequireScoped gates the route on a permission token within the company
// scope extracted from the request.
func (m Middleware) RequireScoped(perm Permission, scope ScopeFunc) func(http.Handler) http.Handler {
	return m.require(NeedPermission(perm), scope)
}

func (m Middleware) require(req Requirement, scope ScopeFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			var target int64
			if scope != nil {
				target = scope(r)
			}
			decision := m.Registry.Authorize(principal, req, target)
			if m.Observer != nil {
				m.Observer.ObserveDecision(decision.Allowed, string(decision.Reason))
			}
			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}
			if m.Audit != nil {
				entry := shared.AuditLog{
					ActorID:  principal.UserID,
					Action:   shared.AuditActionAccessDenied,
					Entity:   "authz",
					EntityID: strconv.FormatInt(principal.UserID, 10),
					Meta: map[string]any{
						"reason":      string(decision.Reason),
						"requirement": req.String(),
						"path":        r.URL.Path,
					},
				}
				if target != 0 {
					entry.Meta["target_company_id"] = target
				}
				if err := m.Audit.Record(r.Context(), entry); err != nil && m.Logger != nil {
					m.Logger.Warn("audit record", slog.String("action", shared.AuditActionAccessDenied), slog.Any("error", err))
				}
			}
			if decision.Reason == ReasonUnknownRole && m.Logger != nil {
				m.Logger.Error("authorization hit unknown role",
					slog.Int64("user_id", principal.UserID),
					slog.String("role", string(principal.Role)),
					slog.String("requirement", req.String()))
			} else if m.Logger != nil {
				m.Logger.Warn("authorization denied",
					slog.Int64("user_id", principal.UserID),
					slog.String("reason", string(decision.Reason)),
					slog.String("requirement", req.String()),
					slog.String("path", r.URL.Path))
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", string(decision.Reason))
		})
	}
}
