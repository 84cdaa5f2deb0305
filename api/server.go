/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:       Unique ID per request for tracing
  2. TrustedRealIP:   Client address from X-Forwarded-For / X-Real-IP, only
                      when the peer is a configured trusted proxy
  3. RequestLogger:   zap request logging
  4. Recoverer:       Panic recovery (500 instead of crash)
  5. SecurityHeaders: nosniff, frame denial, referrer policy
  6. CORS:            Cross-origin requests for the frontend
  7. RateLimit:       Per-client budget, 429 when exceeded (optional)

ROUTE GROUPS:
  /api/employees/*      Employee management and dashboards
  /api/products/*       Product catalog
  /api/sales/*          Sale commit, history, export
  /api/analytics/*      Reports
  /api/dashboard        Administrator overview
  /api/shop-settings    Shop profile
  /api/auth/*           Employee login
  /api/scenarios/*      Demo data (only when enabled)
  /api/health           Liveness probe

SECURITY NOTE:
  Employee login is a lookup by mobile number; there are no sessions.
  Administrative routes are unauthenticated.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Logging, headers, rate limiting
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/shop-engine/ratelimit"
)

// DefaultCORSOrigins are allowed when RouterConfig.CORSOrigins is empty.
var DefaultCORSOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// RouterConfig carries the request filters in front of the handlers.
type RouterConfig struct {
	CORSOrigins []string
	// Limiter is optional; nil disables rate limiting.
	Limiter *ratelimit.Limiter
	// EnableScenarios mounts the demo scenario routes, which wipe the database.
	EnableScenarios bool
	// TrustedProxies may set X-Forwarded-For. Requests from other peers are
	// keyed by their own address.
	TrustedProxies []*net.IPNet
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = DefaultCORSOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(TrustedRealIP(cfg.TrustedProxies))
	r.Use(RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Health probes bypass the rate limiter.
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			if cfg.Limiter != nil {
				r.Use(RateLimit(cfg.Limiter))
			}

			// Employee routes
			r.Route("/employees", func(r chi.Router) {
				r.Get("/", h.ListEmployees)
				r.Post("/", h.CreateEmployee)
				r.Get("/{id}", h.GetEmployee)
				r.Put("/{id}", h.UpdateEmployee)
				r.Delete("/{id}", h.DeactivateEmployee)
				r.Get("/{id}/dashboard", h.EmployeeDashboard)
			})

			// Product routes
			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.ListProducts)
				r.Post("/", h.CreateProduct)
				r.Get("/{id}", h.GetProduct)
				r.Put("/{id}", h.UpdateProduct)
				r.Delete("/{id}", h.DeactivateProduct)
			})

			// Sale routes
			r.Route("/sales", func(r chi.Router) {
				r.Get("/", h.ListSales)
				r.Post("/", h.CommitSale)
				r.Get("/export", h.ExportSales)
				r.Get("/{id}", h.GetSale)
				r.Delete("/{id}", h.DeleteSale)
			})

			// Report routes
			r.Route("/analytics", func(r chi.Router) {
				r.Get("/", h.Analytics)
				r.Get("/daily-summaries", h.DailySummaries)
			})
			r.Get("/dashboard", h.Dashboard)

			r.Get("/shop-settings", h.GetShopSettings)
			r.Put("/shop-settings", h.UpdateShopSettings)

			r.Post("/auth/employee-login", h.EmployeeLogin)

			if cfg.EnableScenarios {
				r.Route("/scenarios", func(r chi.Router) {
					r.Get("/", h.ListScenarios)
					r.Get("/current", h.GetCurrentScenario)
					r.Post("/load", h.LoadScenario)
					r.Post("/reset", h.ResetDatabase)
				})
			}
		})
	})

	return r
}
