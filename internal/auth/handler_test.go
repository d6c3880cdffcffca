package auth_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aegis-erp/aegis-erp/internal/auth"
	"github.com/aegis-erp/aegis-erp/internal/authz"
	"github.com/aegis-erp/aegis-erp/internal/lockout"
	"github.com/aegis-erp/aegis-erp/internal/shared"
	_ "github.com/aegis-erp/aegis-erp/testing"
)

type loginFixture struct {
	handler  *auth.Handler
	sessions *shared.SessionManager
}

func newLoginFixture(t *testing.T, repo auth.Repository) loginFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	guard := lockout.NewGuard(lockout.NewRedisStore(client), nil, slog.Default(), nil)
	registry, err := authz.NewRegistry(authz.DefaultConfig())
	require.NoError(t, err)
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")
	service := auth.NewService(repo, guard, slog.Default())
	handler := auth.NewHandler(slog.Default(), service, registry, sessions, csrf, nil)
	return loginFixture{handler: handler, sessions: sessions}
}

func (f loginFixture) postLogin(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := f.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	router := chi.NewRouter()
	router.Route("/auth", f.handler.MountRoutes)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.NoError(t, f.sessions.Commit(req.Context(), res, req, sess))
	return res
}

func TestLoginHandlerSuccess(t *testing.T) {
	fx := newLoginFixture(t, &stubRepo{user: activeUser(t, "correct-horse")})

	res := fx.postLogin(t, `{"email":"admin@acme.test","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		CSRFToken string `json:"csrf_token"`
		User      struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	require.NotEmpty(t, payload.CSRFToken)
	require.Equal(t, "admin@acme.test", payload.User.Email)
	require.NotEmpty(t, res.Result().Cookies(), "login should issue a session cookie")
}

func TestLoginHandlerInvalidCredentials(t *testing.T) {
	fx := newLoginFixture(t, &stubRepo{user: activeUser(t, "correct-horse")})

	res := fx.postLogin(t, `{"email":"admin@acme.test","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginHandlerLockedReturns423(t *testing.T) {
	fx := newLoginFixture(t, &stubRepo{user: activeUser(t, "correct-horse")})

	for i := 0; i < lockout.DefaultThreshold; i++ {
		fx.postLogin(t, `{"email":"admin@acme.test","password":"wrong"}`)
	}
	res := fx.postLogin(t, `{"email":"admin@acme.test","password":"correct-horse"}`)
	require.Equal(t, http.StatusLocked, res.Code)
	require.Contains(t, res.Body.String(), "locked")
}

func TestLoginHandlerMalformedBody(t *testing.T) {
	fx := newLoginFixture(t, &stubRepo{})

	res := fx.postLogin(t, `{"email":`)
	require.Equal(t, http.StatusBadRequest, res.Code)
}
