package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/opsdesk/opsdesk/app"
	"github.com/opsdesk/opsdesk/handlers"
	"github.com/opsdesk/opsdesk/middleware"
	"github.com/opsdesk/opsdesk/models"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck())
	r.Get("/readyz", handlers.ReadinessCheck(deps.DB))

	cfg := deps.Config.RateLimit

	// Session lifecycle endpoints. Login and refresh are the sensitive
	// operations: both are throttled per client IP.
	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(deps.Limiter, middleware.IPKey("login"), cfg.LoginLimit, cfg.LoginWindow)).
			Post("/login", deps.AuthHandler.HandleLogin)
		r.With(middleware.RateLimit(deps.Limiter, middleware.IPKey("refresh"), cfg.RefreshLimit, cfg.RefreshWindow)).
			Post("/refresh", deps.AuthHandler.HandleRefresh)
		r.Post("/logout", deps.AuthHandler.HandleLogout)
	})

	// API v1 routes. Business routers (customers, jobs, invoices) mount here
	// behind the same permission chains the access probes demonstrate.
	// Authenticated routes are throttled per subject, so one noisy user
	// cannot exhaust a shared office IP's budget; the key falls back to the
	// client IP when the gate has not run.
	apiLimit := middleware.RateLimit(deps.Limiter, middleware.SubjectKeyFunc("api"), cfg.APILimit, cfg.APIWindow)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/me", deps.AuthHandler.HandleMe)

		r.With(deps.AuthMiddleware.RequirePermission(models.PermDispatchAssign), apiLimit).
			Get("/dispatch/access", handlers.AccessProbe)

		r.With(deps.AuthMiddleware.RequireRole([]models.Role{models.RoleAdmin}, models.PermSettingsManage), apiLimit).
			Get("/settings/access", handlers.AccessProbe)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found","message":"Route not found"}`))
	})

	return r
}
