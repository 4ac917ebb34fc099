package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/asakaida/tollgate/internal/infrastructure/metrics"
	"github.com/asakaida/tollgate/internal/services"
	"github.com/asakaida/tollgate/internal/services/access"
)

// HealthChecker reports whether the storage backend is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RouterConfig bundles the dependencies of the HTTP API.
type RouterConfig struct {
	Catalog   services.CatalogServiceInterface
	Ledger    services.LedgerServiceInterface
	Registry  services.RegistryServiceInterface
	Evaluator access.EvaluatorInterface
	Health    HealthChecker

	Collector *metrics.Collector          // optional
	Exporter  *metrics.PrometheusExporter // optional
}

// NewRouter builds the HTTP API router.
func NewRouter(cfg *RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	if cfg.Collector != nil {
		r.Use(metrics.Middleware(cfg.Collector, cfg.Exporter))
	}

	planHandler := NewPlanHandler(cfg.Catalog)
	r.Route("/plans", func(r chi.Router) {
		r.Post("/", planHandler.Create)
		r.Get("/", planHandler.List)
		r.Get("/{id}", planHandler.Get)
		r.Put("/{id}", planHandler.Update)
		r.Delete("/{id}", planHandler.Delete)
	})

	subscriptionHandler := NewSubscriptionHandler(cfg.Ledger)
	r.Route("/subscriptions", func(r chi.Router) {
		r.Post("/", subscriptionHandler.Create)
		r.Get("/{user_id}", subscriptionHandler.Get)
		r.Put("/{user_id}", subscriptionHandler.Update)
		r.Get("/{user_id}/usage", subscriptionHandler.Usage)
	})

	permissionHandler := NewPermissionHandler(cfg.Registry)
	r.Route("/permissions", func(r chi.Router) {
		r.Post("/", permissionHandler.Create)
		r.Get("/", permissionHandler.List)
		r.Get("/{id}", permissionHandler.Get)
		r.Put("/{id}", permissionHandler.Update)
		r.Delete("/{id}", permissionHandler.Delete)
	})

	accessHandler := NewAccessHandler(cfg.Evaluator, cfg.Collector, cfg.Exporter)
	r.Get("/access/{user_id}/{api_request}", accessHandler.Check)

	sampleHandler := NewSampleHandler()
	r.Get("/api/{service}", sampleHandler.Serve)

	r.Get("/healthz", healthzHandler(cfg.Health))

	return r
}

func healthzHandler(health HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health.HealthCheck(r.Context()); err != nil {
				slog.Error("health check failed", "error", err)
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// requestLogger logs one line per request with method, path, status and
// elapsed time.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		)
	})
}
