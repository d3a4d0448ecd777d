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
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/session/internal/service"
)

// NewRouter creates a chi router with all session service routes registered.
func NewRouter(
	sessionService *service.SessionService,
	userService *service.UserService,
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
	r.Use(middleware.PrometheusMetrics("session"))
	r.Use(middleware.Tracing("session"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	sessionHandler := NewSessionHandler(sessionService, logger)
	userHandler := NewUserHandler(userService, logger)

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", sessionHandler.CreateSession)
		r.Get("/", sessionHandler.ListSessions)
		r.Get("/{id}", sessionHandler.GetSession)
		r.Put("/{id}/schedule", sessionHandler.Reschedule)
		r.Delete("/{id}", sessionHandler.DeleteSession)
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", userHandler.CreateUser)
		r.Get("/", userHandler.ListUsers)
		r.Get("/{id}", userHandler.GetUser)
		r.Put("/{id}", userHandler.UpdateUser)
		r.Delete("/{id}", userHandler.DeleteUser)
	})

	return r
}
