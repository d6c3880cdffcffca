package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, "aegis_http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, "aegis_http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestMetricsCountsDecisions(t *testing.T) {
	metrics := NewMetrics()

	metrics.ObserveDecision(true, "")
	metrics.ObserveDecision(true, "should be dropped")
	metrics.ObserveDecision(false, "insufficient_permission")

	body := scrape(t, metrics)
	if !strings.Contains(body, "aegis_authz_decisions_total{outcome=\"allow\",reason=\"\"} 2") {
		t.Fatalf("expected allow count, got: %s", body)
	}
	if !strings.Contains(body, "aegis_authz_decisions_total{outcome=\"deny\",reason=\"insufficient_permission\"} 1") {
		t.Fatalf("expected deny count, got: %s", body)
	}
}

func TestMetricsCountsLockouts(t *testing.T) {
	metrics := NewMetrics()

	metrics.ObserveLockout()
	metrics.ObserveLockout()

	if body := scrape(t, metrics); !strings.Contains(body, "aegis_lockouts_total 2") {
		t.Fatalf("expected lockout count, got: %s", body)
	}
}
