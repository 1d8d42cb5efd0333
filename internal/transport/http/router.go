// Package httptransport assembles the public HTTP surface: the shared
// middleware chain, the authenticated gate routes, and the operational
// endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"legalgate/internal/platform/metrics"
	"legalgate/internal/platform/middleware"
	"legalgate/internal/transport/http/shared"
)

// Registrar is implemented by module handlers that attach routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports readiness of a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RouterConfig carries everything the router wires together.
type RouterConfig struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	JWTValidator   middleware.JWTValidator
	RequestTimeout time.Duration
	// Health checks run on /healthz, keyed by dependency name. Nil values are
	// skipped so optional dependencies register unconditionally.
	Health map[string]HealthChecker
	// Authed handlers sit behind bearer-token auth.
	Authed []Registrar
}

// NewRouter builds the chi router with the full middleware chain.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Latency(cfg.Metrics))

	r.Get("/healthz", handleHealth(cfg))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(cfg.JWTValidator, cfg.Logger))
		for _, h := range cfg.Authed {
			h.Register(r)
		}
	})

	return r
}

func handleHealth(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps := make(map[string]string, len(cfg.Health))
		healthy := true
		for name, checker := range cfg.Health {
			if checker == nil {
				continue
			}
			if err := checker.Health(r.Context()); err != nil {
				deps[name] = "unhealthy"
				healthy = false
				continue
			}
			deps[name] = "ok"
		}
		status := http.StatusOK
		overall := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}
		shared.WriteJSON(w, status, map[string]any{
			"status":       overall,
			"dependencies": deps,
		})
	}
}
