package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/health"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/middleware"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/coach/internal/service"
)

// NewRouter creates a chi router with all coach service routes registered.
func NewRouter(
	coachService *service.CoachService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("coach"))
	r.Use(middleware.Tracing("coach"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	coachHandler := NewCoachHandler(coachService, logger)

	r.Route("/api/v1/coaches", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", coachHandler.CreateCoach)
		r.Get("/", coachHandler.ListCoaches)
		r.Post("/rating", coachHandler.ApplyRating)
		r.Get("/{id}", coachHandler.GetCoach)
		r.Put("/{id}", coachHandler.UpdateCoach)
		r.Put("/{id}/status", coachHandler.UpdateStatus)
		r.Delete("/{id}", coachHandler.DeleteCoach)
	})

	return r
}
