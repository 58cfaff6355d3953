package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/prepwise/prepwise-api/internal/api/handler"
	"github.com/prepwise/prepwise-api/internal/auth"
	"github.com/prepwise/prepwise-api/internal/config"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(h *handler.Handler, tokens *auth.Tokens, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins: cfg.CORSAllowOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Authorization", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	// Swagger UI
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	// API v1 routes. Every route needs a bearer token; writes to alerts and
	// scenarios need the admin role.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(tokens))
		admin := auth.RequireRole(auth.RoleAdmin)

		// Alerts
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", h.ListAlerts)
			r.Get("/active", h.ActiveAlerts)
			r.Get("/critical", h.CriticalAlerts)
			r.Get("/{id}", h.GetAlert)
			r.With(admin).Post("/", h.CreateAlert)
			r.With(admin).Patch("/{id}", h.UpdateAlert)
		})

		// Devices
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", h.ListDevices)
			r.Post("/register", h.RegisterDevice)
			r.Post("/{id}/test", h.SendTestNotification)
			r.Post("/{id}/touch", h.TouchDevice)
			r.Delete("/{id}", h.DeactivateDevice)
		})

		// Drills
		r.Route("/drills", func(r chi.Router) {
			r.Get("/", h.ListDrills)
			r.Get("/{id}", h.GetDrill)
			r.With(admin).Post("/", h.CreateDrill)
			r.With(admin).Put("/{id}", h.UpdateDrill)
			r.Post("/{id}/attempt", h.SubmitAttempt)
			r.Get("/{id}/attempts", h.DrillAttempts)
		})

		// Attempts
		r.Get("/attempts", h.ListAttempts)
		r.Get("/attempts/{id}", h.GetAttempt)
	})

	return r
}
