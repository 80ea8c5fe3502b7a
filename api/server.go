/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard

ROUTE GROUPS:
  /api/session/*        Registration, login, current user
  /api/equipment/*      Catalog and issuing
  /api/issues/*         Outstanding, history, returns, accrual, countdown feed
  /api/scenarios/*      Demo scenarios
  /metrics              Prometheus

SECURITY NOTE:
  The session is a single current-user slot, as in the browser portal.
  There is no per-request authentication.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
		})

		r.Route("/equipment", func(r chi.Router) {
			r.Get("/", h.ListEquipment)
			r.Get("/summary", h.GetSummary)
			r.Post("/{id}/issue", h.IssueEquipment)
		})

		r.Route("/issues", func(r chi.Router) {
			r.Get("/", h.ListOutstanding)
			r.Get("/history", h.ListHistory)
			r.Get("/countdown", h.CountdownFeed)
			r.Post("/refresh", h.RefreshFees)
			r.Post("/{id}/return", h.ReturnEquipment)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Handle("/metrics", h.Metrics.Handler())

	return r
}
