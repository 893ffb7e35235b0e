package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"civreg/pkg/testutil"
)

type staticChecker struct{ err error }

func (c staticChecker) Health(context.Context) error { return c.err }

func newRouter(health map[string]HealthChecker, handlers ...FeatureHandler) http.Handler {
	return NewRouter(Deps{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Handlers: handlers,
		Health:   health,
	})
}

func TestHealthz(t *testing.T) {
	testutil.Given(t, "all dependencies healthy", func(t *testing.T) {
		router := newRouter(map[string]HealthChecker{"postgres": staticChecker{}})

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "OK")
	})

	testutil.Given(t, "one dependency down", func(t *testing.T) {
		router := newRouter(map[string]HealthChecker{
			"postgres": staticChecker{},
			"redis":    staticChecker{err: errors.New("connection refused")},
		})

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)

		body := testutil.UnmarshalResponse[struct {
			Checks map[string]string `json:"checks"`
		}](t, rr)
		if body.Checks["redis"] != "unhealthy" {
			t.Fatalf("expected redis to report unhealthy, got %q", body.Checks["redis"])
		}
		if body.Checks["postgres"] != "ok" {
			t.Fatalf("expected postgres to report ok, got %q", body.Checks["postgres"])
		}
	})

	testutil.Given(t, "an unconfigured dependency", func(t *testing.T) {
		router := newRouter(map[string]HealthChecker{"redis": nil})

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
		testutil.AssertStatusOK(t, rr)

		body := testutil.UnmarshalResponse[struct {
			Checks map[string]string `json:"checks"`
		}](t, rr)
		if body.Checks["redis"] != "not configured" {
			t.Fatalf("expected redis to report not configured, got %q", body.Checks["redis"])
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	router := newRouter(nil)
	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(t, rr)
}

type echoHandler struct{}

func (echoHandler) Register(r chi.Router) {
	r.Get("/echo", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestFeatureHandlersAreMounted(t *testing.T) {
	router := newRouter(nil, echoHandler{})
	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/echo"))
	testutil.AssertStatusOK(t, rr)
}
