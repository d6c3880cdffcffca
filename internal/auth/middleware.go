package auth

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aegis-erp/aegis-erp/internal/authz"
	"github.com/aegis-erp/aegis-erp/internal/shared"
)

// PrincipalLoader resolves the session's user into an authorization
// principal and stores it on the request context. Requests without a valid
// session user pass through without a principal; the authorization
// middleware turns that into a 401 on protected routes.
func PrincipalLoader(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.User() == "" {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := strconv.ParseInt(sess.User(), 10, 64)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			user, err := service.FindUser(r.Context(), userID)
			if err != nil {
				if !notFound(err) {
					logger.Error("load principal", slog.Int64("user_id", userID), slog.Any("error", err))
				}
				next.ServeHTTP(w, r)
				return
			}
			ctx := authz.ContextWithPrincipal(r.Context(), user.Principal())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
