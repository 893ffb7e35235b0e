// Package httptransport assembles the HTTP surface: shared middleware,
// feature handler mounting, and the operational endpoints. Handlers stay
// thin and delegate to domain services; business logic never lives here.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"civreg/internal/platform/middleware"
	"civreg/pkg/platform/httputil"
)

// FeatureHandler is implemented by each feature's HTTP handler.
type FeatureHandler interface {
	Register(r chi.Router)
}

// HealthChecker reports the health of one backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries what the router needs from main.
type Deps struct {
	Logger   *slog.Logger
	Handlers []FeatureHandler
	// Health maps dependency names to their checkers; nil checkers are
	// skipped so unconfigured backends do not fail the probe.
	Health map[string]HealthChecker
}

// NewRouter wires global middleware, the feature handlers, and the
// operational endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientIP)
	r.Use(middleware.Device)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", handleHealth(deps))
	r.Handle("/metrics", promhttp.Handler())

	for _, h := range deps.Handlers {
		h.Register(r)
	}
	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]string, len(deps.Health))
		for name, checker := range deps.Health {
			if checker == nil {
				checks[name] = "not configured"
				continue
			}
			if err := checker.Health(ctx); err != nil {
				checks[name] = "unhealthy"
				status = http.StatusServiceUnavailable
				deps.Logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
				continue
			}
			checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, map[string]any{
			"status": http.StatusText(status),
			"checks": checks,
		})
	}
}
